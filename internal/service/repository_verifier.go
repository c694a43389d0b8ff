package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pages-cd/internal/core/credential"
	"pages-cd/internal/core/outcome"
	"pages-cd/internal/model"
	"pages-cd/internal/repository"
	"pages-cd/pkg/utils"
)

// RepositoryVerifier 定期确认站点仓库仍可被授权用户写入
type RepositoryVerifier struct {
	siteRepo    repository.SiteRepository
	resolver    CredentialResolver
	decode      utils.SecretDecoder
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewRepositoryVerifier 创建仓库校验服务
func NewRepositoryVerifier(
	siteRepo repository.SiteRepository,
	resolver CredentialResolver,
	decode utils.SecretDecoder,
	concurrency int,
	logger *zap.Logger,
) *RepositoryVerifier {
	return &RepositoryVerifier{
		siteRepo:    siteRepo,
		resolver:    resolver,
		decode:      decode,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// VerifyRepos 校验全部站点, 成功的站点记录校验时间
func (s *RepositoryVerifier) VerifyRepos(ctx context.Context) ([]outcome.Keyed[int64, int64], error) {
	sites, err := s.siteRepo.List(repository.WithSiteUsers())
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(sites, func(site *model.Site) int64 { return site.ID })
	ids := lo.Map(sites, func(site *model.Site, _ int) int64 { return site.ID })
	s.logger.Info("开始校验站点仓库", zap.Int("count", len(ids)))

	return outcome.Settle(ctx, ids, s.concurrency, func(ctx context.Context, id int64) (int64, error) {
		return s.verifySite(ctx, byID[id])
	}), nil
}

func (s *RepositoryVerifier) verifySite(ctx context.Context, site *model.Site) (int64, error) {
	_, err := s.resolver.Resolve(ctx, credential.Request{
		Owner:      site.Owner,
		Repository: site.Repository,
		Candidates: candidatesFromUsers(site.Users, s.decode, s.logger),
	})
	if err != nil {
		s.logger.Warn("站点仓库校验失败", zap.Int64("site_id", site.ID), zap.String("repo", site.FullName()), zap.Error(err))
		return 0, err
	}

	if err := s.siteRepo.UpdateRepoLastVerified(site.ID, s.now()); err != nil {
		return 0, err
	}
	return site.ID, nil
}
