package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pages-cd/internal/model"
	"pages-cd/internal/pkg/git"
	"pages-cd/internal/service"
	pkgErrors "pages-cd/pkg/errors"
	"pages-cd/pkg/responses"
)

// BuildStatusService 构建状态上报
type BuildStatusService interface {
	PublishStatus(ctx context.Context, buildID int64) error
	FetchContent(ctx context.Context, build *model.Build, path string) (string, error)
}

// BuildFinder 查询构建
type BuildFinder interface {
	FindByID(id int64) (*model.Build, error)
}

// BuildHandler 构建处理器
type BuildHandler struct {
	statusService BuildStatusService
	builds        BuildFinder
	logger        *zap.Logger
}

// NewBuildHandler 创建构建处理器
func NewBuildHandler(statusService BuildStatusService, builds BuildFinder, logger *zap.Logger) *BuildHandler {
	return &BuildHandler{
		statusService: statusService,
		builds:        builds,
		logger:        logger,
	}
}

// PublishStatus 重新上报构建状态, 上报失败只记录日志
// @Router /api/v1/builds/{id}/status [post]
func (h *BuildHandler) PublishStatus(c *gin.Context) {
	id, ok := buildID(c)
	if !ok {
		return
	}

	if err := h.statusService.PublishStatus(c.Request.Context(), id); err != nil {
		h.logger.Warn("重新上报构建状态失败", zap.Int64("build_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.SuccessWithMessage(c, "已提交状态上报", gin.H{"build_id": id})
}

// Content 读取构建提交下的仓库文件
// @Router /api/v1/builds/{id}/content [get]
func (h *BuildHandler) Content(c *gin.Context) {
	id, ok := buildID(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		responses.ErrorWithDetail(c, pkgErrors.CodeBadRequest, "请求参数错误", "path 不能为空")
		return
	}

	build, err := h.builds.FindByID(id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	content, err := h.statusService.FetchContent(c.Request.Context(), build, path)
	if err != nil {
		if errors.Is(err, service.ErrCommitUnavailable) {
			responses.ErrorWithDetail(c, pkgErrors.CodeBadRequest, "构建尚未拉取源码", err.Error())
			return
		}
		if git.IsNotFound(err) {
			responses.ErrorWithDetail(c, pkgErrors.CodeNotFound, "仓库文件不存在", err.Error())
			return
		}
		h.logger.Warn("读取仓库文件失败", zap.Int64("build_id", id), zap.String("path", path), zap.Error(err))
		responses.Error(c, pkgErrors.Wrap(pkgErrors.CodeExternalError, "读取仓库文件失败", err))
		return
	}

	responses.Success(c, gin.H{"build_id": id, "path": path, "content": content})
}

func buildID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		responses.ErrorWithDetail(c, pkgErrors.CodeBadRequest, "请求参数错误", "无效的构建ID")
		return 0, false
	}
	return id, true
}
