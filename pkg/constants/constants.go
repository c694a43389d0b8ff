package constants

// 构建状态
const (
	BuildStateCreated    = "created"
	BuildStateQueued     = "queued"
	BuildStateProcessing = "processing"
	BuildStateSuccess    = "success"
	BuildStateError      = "error"
)

// UnfinishedBuildStates 未结束的构建状态
var UnfinishedBuildStates = []string{
	BuildStateCreated,
	BuildStateQueued,
	BuildStateProcessing,
}

// 站点构建计划
const (
	SiteConfigSchedule     = "schedule"      // 默认分支构建计划
	SiteConfigDemoSchedule = "demo_schedule" // demo 分支构建计划
	ScheduleNightly        = "nightly"
)

// BuildTimeoutMessage 超时取消构建时写入的错误信息
const BuildTimeoutMessage = "The build timed out"

// 定时任务名称
const (
	JobQueueNightlyBuilds       = "queue_nightly_builds"
	JobTimeoutStaleBuilds       = "timeout_stale_builds"
	JobArchiveBuildLogsDaily    = "archive_build_logs_daily"
	JobVerifyRepositories       = "verify_repositories"
	JobRevokeInactiveMembership = "revoke_inactive_user_memberships"
)
