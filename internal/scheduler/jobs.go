package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	"pages-cd/pkg/constants"
)

// NightlyBuilder 每晚构建入队
type NightlyBuilder interface {
	QueueNightlyBuilds(ctx context.Context) ([]outcome.Keyed[string, int64], error)
}

// BuildTimeouter 取消超时构建
type BuildTimeouter interface {
	TimeoutBuilds(ctx context.Context) ([]outcome.Keyed[int64, int64], error)
}

// LogArchiver 构建日志归档
type LogArchiver interface {
	ListBuildIDsCompletedBetween(start, end time.Time) ([]int64, error)
	ArchiveBuildLogsForBuildID(ctx context.Context, buildID int64) error
}

// RepoVerifier 站点仓库校验
type RepoVerifier interface {
	VerifyRepos(ctx context.Context) ([]outcome.Keyed[int64, int64], error)
}

// MembershipRevoker 移除不活跃用户
type MembershipRevoker interface {
	RevokeMembershipForInactiveUsers(ctx context.Context) ([]outcome.Keyed[int64, int64], error)
}

// JobFunc 定时任务, 任一子任务失败时返回汇总错误
type JobFunc func(ctx context.Context) error

// JobServices 定时任务依赖的业务服务
type JobServices struct {
	Nightly    NightlyBuilder
	Timeout    BuildTimeouter
	Logs       LogArchiver
	Verifier   RepoVerifier
	Membership MembershipRevoker
}

// Jobs 定时任务注册表
type Jobs struct {
	services    JobServices
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewJobs 创建定时任务注册表
func NewJobs(services JobServices, concurrency int, logger *zap.Logger) *Jobs {
	return &Jobs{
		services:    services,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// Names 全部任务名称
func (j *Jobs) Names() []string {
	return []string{
		constants.JobQueueNightlyBuilds,
		constants.JobTimeoutStaleBuilds,
		constants.JobArchiveBuildLogsDaily,
		constants.JobVerifyRepositories,
		constants.JobRevokeInactiveMembership,
	}
}

// Get 按名称获取任务
func (j *Jobs) Get(name string) (JobFunc, bool) {
	switch name {
	case constants.JobQueueNightlyBuilds:
		return j.QueueNightlyBuilds, true
	case constants.JobTimeoutStaleBuilds:
		return j.TimeoutStaleBuilds, true
	case constants.JobArchiveBuildLogsDaily:
		return j.ArchiveBuildLogsDaily, true
	case constants.JobVerifyRepositories:
		return j.VerifyRepositories, true
	case constants.JobRevokeInactiveMembership:
		return j.RevokeInactiveUserMemberships, true
	default:
		return nil, false
	}
}

// QueueNightlyBuilds 为配置了 nightly 计划的站点排队构建
func (j *Jobs) QueueNightlyBuilds(ctx context.Context) error {
	results, err := j.services.Nightly.QueueNightlyBuilds(ctx)
	if err != nil {
		return err
	}
	return outcome.AggregateKeyed(results, outcome.Summary{Verb: "Queued nightly builds"})
}

// TimeoutStaleBuilds 取消超时构建
func (j *Jobs) TimeoutStaleBuilds(ctx context.Context) error {
	results, err := j.services.Timeout.TimeoutBuilds(ctx)
	if err != nil {
		return err
	}
	return outcome.AggregateKeyed(results, outcome.Detailed{Noun: "build tasks", Verb: "canceled"})
}

// ArchiveBuildLogsDaily 归档前一天结束的构建日志
func (j *Jobs) ArchiveBuildLogsDaily(ctx context.Context) error {
	now := j.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := end.AddDate(0, 0, -1)

	ids, err := j.services.Logs.ListBuildIDsCompletedBetween(start, end)
	if err != nil {
		return err
	}
	j.logger.Info("归档构建日志", zap.String("date", start.Format(time.DateOnly)), zap.Int("builds", len(ids)))

	results := outcome.Settle(ctx, ids, j.concurrency, func(ctx context.Context, id int64) (struct{}, error) {
		return struct{}{}, j.services.Logs.ArchiveBuildLogsForBuildID(ctx, id)
	})
	return outcome.AggregateKeyed(results, outcome.DailyArchive{Date: start})
}

// VerifyRepositories 校验站点仓库权限
func (j *Jobs) VerifyRepositories(ctx context.Context) error {
	results, err := j.services.Verifier.VerifyRepos(ctx)
	if err != nil {
		return err
	}
	return outcome.AggregateKeyed(results, outcome.Summary{Verb: "Repositories verified"})
}

// RevokeInactiveUserMemberships 移除不活跃用户的站点权限
func (j *Jobs) RevokeInactiveUserMemberships(ctx context.Context) error {
	results, err := j.services.Membership.RevokeMembershipForInactiveUsers(ctx)
	if err != nil {
		return err
	}
	return outcome.AggregateKeyed(results, outcome.Summary{Verb: "Inactive users removed"})
}
