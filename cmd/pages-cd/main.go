package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pages-cd/internal/adapter/notification"
	"pages-cd/internal/api/handler"
	"pages-cd/internal/api/router"
	"pages-cd/internal/core/credential"
	"pages-cd/internal/core/status"
	"pages-cd/internal/pkg/config"
	"pages-cd/internal/pkg/database"
	"pages-cd/internal/pkg/git"
	"pages-cd/internal/pkg/logger"
	"pages-cd/internal/pkg/queue"
	"pages-cd/internal/pkg/storage"
	"pages-cd/internal/repository"
	"pages-cd/internal/scheduler"
	"pages-cd/internal/service"
	"pages-cd/pkg/utils"
)

var (
	configFile = flag.String("config", "", "配置文件路径 (例如: -config=configs/config.yaml)")
	version    = flag.Bool("version", false, "显示版本信息")
)

const (
	appVersion = "1.0.0"
	appName    = "pages-cd"
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 显示版本信息
	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	// 优先级: 命令行参数 > 环境变量 > 默认路径
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		fmt.Println("\n使用方式:")
		fmt.Println("  1. 命令行参数指定:  ./pages-cd -config=configs/config.yaml")
		fmt.Println("  2. 环境变量指定:    CONFIG_FILE=configs/config.yaml ./pages-cd")
		fmt.Println("  3. 使用默认配置:    ./pages-cd  (将使用 configs/config.yaml)")
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Close()
	}()
	logger.Info(fmt.Sprintf("Load config file: %s of %s", configPath, getConfigSource()))
	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion), zap.String("env", cfg.App.Env))

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		_ = database.Close(db)
	}()
	logger.Info(fmt.Sprintf("数据库连接成功 %s:%v", cfg.Database.Host, cfg.Database.Port), zap.String("database", cfg.Database.Database))

	// 构建队列
	buildQueue, err := queue.NewBuildQueue(&cfg.Redis)
	if err != nil {
		logger.Fatal("初始化构建队列失败", zap.Error(err))
	}
	defer func() {
		_ = buildQueue.Close()
	}()

	// 日志归档存储
	logStore, err := storage.NewLogStore(context.Background(), &cfg.Storage)
	if err != nil {
		logger.Fatal("初始化日志存储失败", zap.Error(err))
	}

	// 代码托管平台
	provider, err := git.NewProvider(git.ProviderConfig{
		Platform: git.PlatformType(cfg.Git.Platform),
		BaseURL:  cfg.Git.BaseURL,
		Timeout:  cfg.Git.GetTimeout(),
	})
	if err != nil {
		logger.Fatal("初始化代码托管平台客户端失败", zap.Error(err))
	}
	logger.Info("代码托管平台", zap.String("platform", string(provider.GetPlatformType())))

	buildTimeout, _ := cfg.Jobs.GetBuildTimeout()
	decode := utils.NewSecretDecoder(cfg.Crypto.AESKey)

	// 初始化Repository
	buildRepo := repository.NewBuildRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	userRepo := repository.NewUserRepository(db)
	buildLogRepo := repository.NewBuildLogRepository(db)

	// 状态上报
	resolver := credential.NewResolver(provider, logger.Named("credential"))
	mapper := status.NewMapper(status.NewLinks(&cfg.App), cfg.App.Env, cfg.App.StatusContext)
	publisher := service.NewStatusPublisher(buildRepo, resolver, mapper, provider, decode, logger.Named("status"))

	// 定时任务
	jobs := scheduler.NewJobs(scheduler.JobServices{
		Nightly:    service.NewNightlyBuildService(siteRepo, buildRepo, buildQueue, cfg.Jobs.Concurrency, logger.Named("nightly")),
		Timeout:    service.NewTimeoutBuildService(buildRepo, buildQueue, publisher, buildTimeout, cfg.Jobs.Concurrency, logger.Named("timeout")),
		Logs:       service.NewBuildLogService(buildRepo, buildLogRepo, logStore, logger.Named("build-logs")),
		Verifier:   service.NewRepositoryVerifier(siteRepo, resolver, decode, cfg.Jobs.Concurrency, logger.Named("verifier")),
		Membership: service.NewMembershipService(userRepo, cfg.Jobs.InactiveUserDays, cfg.Jobs.Concurrency, logger.Named("membership")),
	}, cfg.Jobs.Concurrency, logger.Named("jobs"))

	notifier := notification.NewNotifier(&cfg.Notification, logger.Named("notification"))
	taskScheduler := scheduler.NewScheduler(jobs, &cfg.Jobs, notifier, logger.Named("scheduler"))
	if err := taskScheduler.Start(); err != nil {
		logger.Fatal("定时任务调度器启动失败", zap.Error(err))
	}

	// 设置路由
	r := router.Setup(&cfg.Server, router.Handlers{
		Build: handler.NewBuildHandler(publisher, buildRepo, logger.Named("api")),
		Job:   handler.NewJobHandler(taskScheduler, logger.Named("api")),
	}, logger.Log)

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name),
			zap.String("address", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")

	// 关闭定时任务调度器
	taskScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务已关闭")
}

// getConfigPath 获取配置文件路径
// 优先级: 命令行参数 > 环境变量 > 默认路径
func getConfigPath() string {
	if *configFile != "" {
		return *configFile
	}
	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		return envConfig
	}
	return "configs/config.yaml"
}

// getConfigSource 获取配置来源说明
func getConfigSource() string {
	if *configFile != "" {
		return "命令行参数"
	}
	if os.Getenv("CONFIG_FILE") != "" {
		return "环境变量"
	}
	return "默认配置"
}
