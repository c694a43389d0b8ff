package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pages-cd/internal/core/credential"
	"pages-cd/internal/core/status"
	"pages-cd/internal/model"
	"pages-cd/internal/pkg/git"
	"pages-cd/internal/repository"
	"pages-cd/pkg/utils"
)

// ErrCommitUnavailable 构建尚未拉取源码
var ErrCommitUnavailable = errors.New("commit unavailable")

// CommitUnavailableError 构建没有已拉取的提交, 无法读取仓库文件
type CommitUnavailableError struct {
	BuildID int64
	Path    string
}

func (e *CommitUnavailableError) Error() string {
	return fmt.Sprintf("Build or commit sha undefined. Unable to fetch %s for build@id=%d", e.Path, e.BuildID)
}

func (e *CommitUnavailableError) Is(target error) bool {
	return target == ErrCommitUnavailable
}

// CredentialResolver 解析可写入仓库的令牌
type CredentialResolver interface {
	Resolve(ctx context.Context, req credential.Request) (*credential.Credential, error)
}

// RepositoryClient 代码托管平台的写状态与读文件能力
type RepositoryClient interface {
	SetStatus(ctx context.Context, token, owner, repo, sha string, req git.StatusRequest) error
	GetContent(ctx context.Context, token, owner, repo, path, ref string) (string, error)
}

// BuildStatusPublisher 上报构建状态, 不返回错误
type BuildStatusPublisher interface {
	PublishBuildStatus(ctx context.Context, build *model.Build)
}

// StatusPublisher 构建状态上报服务
type StatusPublisher struct {
	buildRepo repository.BuildRepository
	resolver  CredentialResolver
	mapper    *status.Mapper
	client    RepositoryClient
	decode    utils.SecretDecoder
	logger    *zap.Logger
}

// NewStatusPublisher 创建构建状态上报服务
func NewStatusPublisher(
	buildRepo repository.BuildRepository,
	resolver CredentialResolver,
	mapper *status.Mapper,
	client RepositoryClient,
	decode utils.SecretDecoder,
	logger *zap.Logger,
) *StatusPublisher {
	return &StatusPublisher{
		buildRepo: buildRepo,
		resolver:  resolver,
		mapper:    mapper,
		client:    client,
		decode:    decode,
		logger:    logger,
	}
}

// PublishBuildStatus 上报构建当前状态到代码托管平台.
// 任何失败只记录日志, 不影响构建流程.
func (p *StatusPublisher) PublishBuildStatus(ctx context.Context, build *model.Build) {
	if build == nil {
		p.logger.Error("上报提交状态失败: 构建为空")
		return
	}
	log := p.logger.With(zap.Int64("build_id", build.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("上报提交状态异常", zap.Any("panic", r))
		}
	}()

	site, err := p.siteOf(build)
	if err != nil {
		log.Error("查询构建站点失败", zap.Error(err))
		return
	}

	cred, err := p.resolve(ctx, build, site)
	if err != nil {
		log.Error("没有可用于上报提交状态的令牌", zap.String("repo", site.FullName()), zap.Error(err))
		return
	}

	payload, err := p.mapper.Map(build, site)
	if err != nil {
		log.Error("生成提交状态失败", zap.Error(err))
		return
	}

	err = p.client.SetStatus(ctx, cred.Token, site.Owner, site.Repository, payload.SHA, git.StatusRequest{
		State:       string(payload.State),
		TargetURL:   payload.TargetURL,
		Description: payload.Description,
		Context:     payload.Context,
	})
	if err != nil {
		log.Error("上报提交状态失败",
			zap.String("repo", site.FullName()),
			zap.String("sha", payload.SHA),
			zap.Error(err))
		return
	}

	log.Info("已上报提交状态",
		zap.String("repo", site.FullName()),
		zap.String("sha", payload.SHA),
		zap.String("state", string(payload.State)),
		zap.Int64("user_id", cred.UserID))
}

// PublishStatus 按ID重新上报构建状态, 仅查询构建失败时返回错误
func (p *StatusPublisher) PublishStatus(ctx context.Context, buildID int64) error {
	build, err := p.buildRepo.FindByID(buildID)
	if err != nil {
		return err
	}
	p.PublishBuildStatus(ctx, build)
	return nil
}

// FetchContent 读取构建所拉取提交下的仓库文件
func (p *StatusPublisher) FetchContent(ctx context.Context, build *model.Build, path string) (string, error) {
	if build.ClonedCommitSHA == nil || *build.ClonedCommitSHA == "" {
		return "", &CommitUnavailableError{BuildID: build.ID, Path: path}
	}

	site, err := p.siteOf(build)
	if err != nil {
		return "", err
	}

	cred, err := p.resolve(ctx, build, site)
	if err != nil {
		return "", err
	}

	return p.client.GetContent(ctx, cred.Token, site.Owner, site.Repository, path, *build.ClonedCommitSHA)
}

// siteOf 未预加载站点时重新查询
func (p *StatusPublisher) siteOf(build *model.Build) (*model.Site, error) {
	if build.Site != nil {
		return build.Site, nil
	}
	loaded, err := p.buildRepo.FindByID(build.ID)
	if err != nil {
		return nil, err
	}
	if loaded.Site == nil {
		return nil, fmt.Errorf("构建 %d 的站点 %d 不存在", build.ID, build.SiteID)
	}
	return loaded.Site, nil
}

func (p *StatusPublisher) resolve(ctx context.Context, build *model.Build, site *model.Site) (*credential.Credential, error) {
	return p.resolver.Resolve(ctx, credential.Request{
		OwnerUserID: build.UserID,
		Owner:       site.Owner,
		Repository:  site.Repository,
		Candidates:  candidatesFromUsers(site.Users, p.decode, p.logger),
	})
}

// candidatesFromUsers 只保留持有令牌的用户, 令牌解密失败的用户跳过
func candidatesFromUsers(users []*model.User, decode utils.SecretDecoder, logger *zap.Logger) []credential.Candidate {
	candidates := make([]credential.Candidate, 0, len(users))
	for _, user := range users {
		if user == nil || !user.HasCredential() {
			continue
		}
		token, err := decode(user.GithubAccessToken)
		if err != nil {
			logger.Warn("解密访问令牌失败", zap.Int64("user_id", user.ID), zap.Error(err))
			continue
		}
		candidates = append(candidates, credential.Candidate{UserID: user.ID, Token: token})
	}
	return candidates
}
