package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	"pages-cd/internal/model"
	"pages-cd/internal/repository"
	"pages-cd/pkg/constants"
)

var errSiteWithoutUsers = errors.New("站点没有授权用户")

// BuildEnqueuer 构建入队
type BuildEnqueuer interface {
	Enqueue(ctx context.Context, buildID int64) error
}

// NightlyBuildService 每晚构建
type NightlyBuildService struct {
	siteRepo    repository.SiteRepository
	buildRepo   repository.BuildRepository
	queue       BuildEnqueuer
	concurrency int
	logger      *zap.Logger
}

type nightlyTarget struct {
	site   *model.Site
	branch string
}

// NewNightlyBuildService 创建每晚构建服务
func NewNightlyBuildService(
	siteRepo repository.SiteRepository,
	buildRepo repository.BuildRepository,
	queue BuildEnqueuer,
	concurrency int,
	logger *zap.Logger,
) *NightlyBuildService {
	return &NightlyBuildService{
		siteRepo:    siteRepo,
		buildRepo:   buildRepo,
		queue:       queue,
		concurrency: concurrency,
		logger:      logger,
	}
}

// QueueNightlyBuilds 为配置了 nightly 计划的站点分支创建构建并入队, 结果以 owner/repo@branch 标识
func (s *NightlyBuildService) QueueNightlyBuilds(ctx context.Context) ([]outcome.Keyed[string, int64], error) {
	sites, err := s.siteRepo.List(repository.WithSiteUsers())
	if err != nil {
		return nil, err
	}

	targets := make(map[string]nightlyTarget)
	var keys []string
	for _, site := range sites {
		for _, branch := range site.NightlyBranches() {
			key := fmt.Sprintf("%s@%s", site.FullName(), branch)
			if _, exists := targets[key]; exists {
				continue
			}
			targets[key] = nightlyTarget{site: site, branch: branch}
			keys = append(keys, key)
		}
	}
	s.logger.Info("开始创建每晚构建", zap.Int("sites", len(sites)), zap.Strings("targets", keys))

	return outcome.Settle(ctx, keys, s.concurrency, func(ctx context.Context, key string) (int64, error) {
		target := targets[key]
		return s.queueBuild(ctx, target.site, target.branch)
	}), nil
}

func (s *NightlyBuildService) queueBuild(ctx context.Context, site *model.Site, branch string) (int64, error) {
	if len(site.Users) == 0 {
		return 0, errSiteWithoutUsers
	}
	// 优先使用持有令牌的用户作为发起人
	user, ok := lo.Find(site.Users, func(u *model.User) bool { return u.HasCredential() })
	if !ok {
		user = site.Users[0]
	}

	build := &model.Build{
		State:  constants.BuildStateCreated,
		Branch: branch,
		UserID: user.ID,
		SiteID: site.ID,
	}
	if err := s.buildRepo.Create(build); err != nil {
		return 0, err
	}
	if err := s.queue.Enqueue(ctx, build.ID); err != nil {
		return 0, err
	}
	if err := s.buildRepo.UpdateState(build.ID, constants.BuildStateQueued); err != nil {
		return 0, err
	}

	s.logger.Info("已创建每晚构建",
		zap.Int64("build_id", build.ID),
		zap.Int64("site_id", site.ID),
		zap.String("branch", branch))
	return build.ID, nil
}
