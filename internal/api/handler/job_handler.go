package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	pkgErrors "pages-cd/pkg/errors"
	"pages-cd/pkg/responses"
)

// JobTrigger 手动执行定时任务
type JobTrigger interface {
	Trigger(ctx context.Context, name string) error
}

// JobHandler 定时任务处理器
type JobHandler struct {
	trigger JobTrigger
	logger  *zap.Logger
}

// NewJobHandler 创建定时任务处理器
func NewJobHandler(trigger JobTrigger, logger *zap.Logger) *JobHandler {
	return &JobHandler{trigger: trigger, logger: logger}
}

// Run 同步执行任务, 部分子任务失败时返回汇总信息
// @Router /api/v1/jobs/{name}/run [post]
func (h *JobHandler) Run(c *gin.Context) {
	name := c.Param("name")

	err := h.trigger.Trigger(c.Request.Context(), name)
	if err == nil {
		responses.SuccessWithMessage(c, "任务执行成功", gin.H{"job": name})
		return
	}

	var aggErr *outcome.AggregateError
	if errors.As(err, &aggErr) {
		responses.ErrorWithData(c, pkgErrors.CodeJobFailed, aggErr.Message, gin.H{
			"job":       name,
			"fulfilled": aggErr.Fulfilled,
			"rejected":  aggErr.Rejected,
		})
		return
	}

	responses.Error(c, err)
}
