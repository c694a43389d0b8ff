package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pages-cd/internal/repository"
)

var errBuildNotFinished = errors.New("构建尚未结束, 不能归档日志")

// LogArchive 构建日志归档存储
type LogArchive interface {
	PutLog(ctx context.Context, bucket, key string, body []byte) (string, error)
}

// BuildLogService 构建日志归档
type BuildLogService struct {
	buildRepo repository.BuildRepository
	logRepo   repository.BuildLogRepository
	archive   LogArchive
	logger    *zap.Logger
}

// NewBuildLogService 创建构建日志服务
func NewBuildLogService(
	buildRepo repository.BuildRepository,
	logRepo repository.BuildLogRepository,
	archive LogArchive,
	logger *zap.Logger,
) *BuildLogService {
	return &BuildLogService{
		buildRepo: buildRepo,
		logRepo:   logRepo,
		archive:   archive,
		logger:    logger,
	}
}

// ListBuildIDsCompletedBetween 查询时间段 [start, end) 内结束的构建
func (s *BuildLogService) ListBuildIDsCompletedBetween(start, end time.Time) ([]int64, error) {
	return s.buildRepo.ListIDsCompletedBetween(start, end)
}

// ArchiveBuildLogsForBuildID 将构建日志上传到 <site_id>/<build_id>.log 并删除数据库中的日志行
func (s *BuildLogService) ArchiveBuildLogsForBuildID(ctx context.Context, buildID int64) error {
	build, err := s.buildRepo.FindByID(buildID)
	if err != nil {
		return err
	}
	if build.LogsS3Key != nil && *build.LogsS3Key != "" {
		s.logger.Debug("构建日志已归档", zap.Int64("build_id", buildID), zap.String("key", *build.LogsS3Key))
		return nil
	}
	if !build.IsFinished() {
		return fmt.Errorf("build@id=%d state=%s: %w", buildID, build.State, errBuildNotFinished)
	}

	logs, err := s.logRepo.ListByBuildID(buildID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, line := range logs {
		sb.WriteString(line.Output)
		if !strings.HasSuffix(line.Output, "\n") {
			sb.WriteByte('\n')
		}
	}

	bucket := ""
	if build.Site != nil {
		bucket = build.Site.AwsBucketName
	}
	key := fmt.Sprintf("%d/%d.log", build.SiteID, build.ID)

	bucket, err = s.archive.PutLog(ctx, bucket, key, []byte(sb.String()))
	if err != nil {
		return err
	}
	if err := s.buildRepo.UpdateLogsKey(buildID, key); err != nil {
		return err
	}
	if err := s.logRepo.DeleteByBuildID(buildID); err != nil {
		return err
	}

	s.logger.Info("构建日志已归档",
		zap.Int64("build_id", buildID),
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("lines", len(logs)))
	return nil
}
