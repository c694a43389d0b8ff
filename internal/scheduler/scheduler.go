package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pages-cd/internal/adapter/notification"
	"pages-cd/internal/pkg/config"
	"pages-cd/pkg/constants"
	pkgErrors "pages-cd/pkg/errors"
)

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	jobs          *Jobs
	specs         map[string]string
	notifier      notification.Notifier
	logger        *zap.Logger
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(jobs *Jobs, cfg *config.JobsConfig, notifier notification.Notifier, logger *zap.Logger) *Scheduler {
	cronLog := cronLogger{logger.Sugar()}
	// 创建 cron 实例（带秒级支持）
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger,
		specs: map[string]string{
			constants.JobQueueNightlyBuilds:       cfg.NightlyBuilds,
			constants.JobTimeoutStaleBuilds:       cfg.TimeoutBuilds,
			constants.JobArchiveBuildLogsDaily:    cfg.ArchiveBuildLogs,
			constants.JobVerifyRepositories:       cfg.VerifyRepositories,
			constants.JobRevokeInactiveMembership: cfg.RevokeInactiveMembers,
		},
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 注册全部任务并启动调度器, cron 表达式为空的任务不注册
func (s *Scheduler) Start() error {
	log := s.logger.Sugar()
	log.Info("启动定时任务调度器...")

	for _, name := range s.jobs.Names() {
		cronExpr := s.specs[name]
		if cronExpr == "" {
			log.Warnf("定时任务未配置 cron 表达式, 跳过: %s", name)
			continue
		}

		entryID, err := s.cron.AddFunc(cronExpr, func() {
			_ = s.run(context.Background(), name)
		})
		if err != nil {
			log.Errorf("注册定时任务 %s: %v 失败: %v", name, cronExpr, err)
			return err
		}

		s.cronSchedules[name] = entryID
		log.Infof("定时任务已注册: %s %s entry_id=%d", name, cronExpr, entryID)
	}

	s.cron.Start()
	log.Info("定时任务调度器启动成功")
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// Trigger 手动同步执行任务
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	if _, ok := s.jobs.Get(name); !ok {
		return pkgErrors.ErrUnknownJob
	}
	s.logger.Info("手动触发定时任务", zap.String("job", name))
	return s.run(ctx, name)
}

// run 执行一次任务, 失败时记录日志并发送通知
func (s *Scheduler) run(ctx context.Context, name string) error {
	job, _ := s.jobs.Get(name)
	runID := uuid.NewString()
	log := s.logger.With(zap.String("job", name), zap.String("run_id", runID))

	start := time.Now()
	log.Info("开始执行定时任务")

	if err := job(ctx); err != nil {
		log.Error("定时任务执行失败", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		if notifyErr := s.notifier.SendJobFailure(ctx, name, runID, err); notifyErr != nil {
			log.Warn("发送任务失败通知失败", zap.Error(notifyErr))
		}
		return err
	}

	log.Info("定时任务执行完成", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
