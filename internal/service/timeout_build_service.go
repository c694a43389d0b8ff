package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	"pages-cd/internal/model"
	"pages-cd/internal/repository"
	"pages-cd/pkg/constants"
)

// BuildQueue 构建队列
type BuildQueue interface {
	Enqueue(ctx context.Context, buildID int64) error
	Remove(ctx context.Context, buildID int64) (bool, error)
}

// TimeoutBuildService 取消超时未完成的构建
type TimeoutBuildService struct {
	buildRepo   repository.BuildRepository
	queue       BuildQueue
	publisher   BuildStatusPublisher
	timeout     time.Duration
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewTimeoutBuildService 创建超时构建服务
func NewTimeoutBuildService(
	buildRepo repository.BuildRepository,
	queue BuildQueue,
	publisher BuildStatusPublisher,
	timeout time.Duration,
	concurrency int,
	logger *zap.Logger,
) *TimeoutBuildService {
	return &TimeoutBuildService{
		buildRepo:   buildRepo,
		queue:       queue,
		publisher:   publisher,
		timeout:     timeout,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// TimeoutBuilds 将创建时间超过 timeout 仍未结束的构建置为失败, 返回 (构建ID, 结果)
func (s *TimeoutBuildService) TimeoutBuilds(ctx context.Context) ([]outcome.Keyed[int64, int64], error) {
	cutoff := s.now().Add(-s.timeout)
	builds, err := s.buildRepo.ListUnfinishedCreatedBefore(cutoff)
	if err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		s.logger.Debug("没有超时的构建", zap.Time("cutoff", cutoff))
		return nil, nil
	}

	byID := lo.KeyBy(builds, func(b *model.Build) int64 { return b.ID })
	ids := lo.Map(builds, func(b *model.Build, _ int) int64 { return b.ID })
	s.logger.Info("开始取消超时构建", zap.Int("count", len(ids)), zap.Int64s("build_ids", ids))

	return outcome.Settle(ctx, ids, s.concurrency, func(ctx context.Context, id int64) (int64, error) {
		return s.cancelBuild(ctx, byID[id])
	}), nil
}

func (s *TimeoutBuildService) cancelBuild(ctx context.Context, build *model.Build) (int64, error) {
	if _, err := s.queue.Remove(ctx, build.ID); err != nil {
		return 0, err
	}

	now := s.now()
	updated, err := s.buildRepo.MarkError(build.ID, constants.BuildTimeoutMessage, now)
	if err != nil {
		return 0, err
	}
	if !updated {
		// 查询之后构建已自行结束
		s.logger.Info("构建已结束, 跳过超时处理", zap.Int64("build_id", build.ID))
		return build.ID, nil
	}

	message := constants.BuildTimeoutMessage
	build.State = constants.BuildStateError
	build.Error = &message
	build.CompletedAt = &now
	s.publisher.PublishBuildStatus(ctx, build)

	s.logger.Info("已取消超时构建", zap.Int64("build_id", build.ID), zap.Int64("site_id", build.SiteID))
	return build.ID, nil
}
