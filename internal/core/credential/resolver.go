package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	"pages-cd/internal/pkg/git"
)

// ErrNoAuthorizedCredential 没有任何候选令牌可以写入仓库状态
var ErrNoAuthorizedCredential = errors.New("no authorized credential")

// PermissionChecker 查询令牌在仓库上的权限
type PermissionChecker interface {
	GetPermissions(ctx context.Context, token, owner, repo string) (git.Permissions, error)
}

// Candidate 候选用户及其明文令牌
type Candidate struct {
	UserID int64
	Token  string
}

// Request 一次解析请求
type Request struct {
	OwnerUserID int64 // 构建发起人, 有权限时优先使用
	Owner       string
	Repository  string
	Candidates  []Candidate
}

// Credential 解析结果
type Credential struct {
	UserID int64
	Token  string
}

// Resolver 从站点授权用户中挑选可以写入提交状态的令牌
type Resolver struct {
	checker PermissionChecker
	logger  *zap.Logger
}

// NewResolver 创建 Resolver
func NewResolver(checker PermissionChecker, logger *zap.Logger) *Resolver {
	return &Resolver{
		checker: checker,
		logger:  logger,
	}
}

// Resolve 并发探测所有持有令牌的候选用户, 发起人有权限时返回发起人,
// 否则按候选顺序返回第一个有权限的用户.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Credential, error) {
	repo := req.Owner + "/" + req.Repository

	candidates := lo.Filter(req.Candidates, func(c Candidate, _ int) bool { return c.Token != "" })
	candidates = lo.UniqBy(candidates, func(c Candidate) int64 { return c.UserID })
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s 没有持有令牌的用户", ErrNoAuthorizedCredential, repo)
	}

	results := outcome.Settle(ctx, candidates, 0, func(ctx context.Context, c Candidate) (git.Permissions, error) {
		return r.checker.GetPermissions(ctx, c.Token, req.Owner, req.Repository)
	})

	var authorized []Candidate
	for _, result := range results {
		if !result.Outcome.IsFulfilled() {
			r.logProbeFailure(repo, result.Key.UserID, result.Outcome.Reason())
			continue
		}
		if result.Outcome.Value().CanWrite() {
			authorized = append(authorized, result.Key)
		}
	}

	if len(authorized) == 0 {
		return nil, fmt.Errorf("%w: %s 的 %d 个候选用户均无写权限", ErrNoAuthorizedCredential, repo, len(candidates))
	}

	selected, ok := lo.Find(authorized, func(c Candidate) bool { return c.UserID == req.OwnerUserID })
	if !ok {
		selected = authorized[0]
	}

	r.logger.Debug("已选定令牌",
		zap.String("repo", repo),
		zap.Int64("user_id", selected.UserID),
		zap.Int("authorized", len(authorized)))

	return &Credential{UserID: selected.UserID, Token: selected.Token}, nil
}

func (r *Resolver) logProbeFailure(repo string, userID int64, err error) {
	fields := []zap.Field{zap.String("repo", repo), zap.Int64("user_id", userID), zap.Error(err)}
	switch {
	case git.IsUnauthorized(err):
		r.logger.Warn("令牌无效或已被撤销", fields...)
	case git.IsNotFound(err):
		r.logger.Warn("仓库不存在或令牌无权访问", fields...)
	default:
		r.logger.Warn("查询仓库权限失败", fields...)
	}
}
