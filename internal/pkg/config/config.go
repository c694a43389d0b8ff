package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"pages-cd/pkg/utils"
)

// EnvProduction 生产环境标识
const EnvProduction = "production"

// Config 全局配置
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Crypto       CryptoConfig       `mapstructure:"crypto"`
	App          AppConfig          `mapstructure:"app"`
	Git          GitConfig          `mapstructure:"git"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"gt=0"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release"` // debug, release
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"gt=0"`
	Database        string `mapstructure:"database" validate:"required"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // SQL日志级别: silent/error/warn/info
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// CryptoConfig 加密配置
type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key" validate:"omitempty,len=32"` // 32字节, 为空时令牌按明文存储
}

// AppConfig 应用配置
type AppConfig struct {
	Env           string `mapstructure:"env" validate:"required"`
	Hostname      string `mapstructure:"hostname" validate:"required,url"`
	StatusContext string `mapstructure:"status_context" validate:"required"` // 提交状态 context 前缀
	ProxyDomain   string `mapstructure:"proxy_domain"`                       // 预览站点域名
}

// IsProduction 是否生产环境
func (c *AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// GitConfig 代码托管平台配置
type GitConfig struct {
	Platform string `mapstructure:"platform" validate:"oneof=github gitea"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout  string `mapstructure:"timeout"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr       string `mapstructure:"addr" validate:"required"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	BuildQueue string `mapstructure:"build_queue" validate:"required"` // 构建队列 key
}

// StorageConfig 构建日志归档存储配置
type StorageConfig struct {
	Region       string `mapstructure:"region" validate:"required"`
	Bucket       string `mapstructure:"bucket" validate:"required"` // 站点未配置 bucket 时使用
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Provider    string `mapstructure:"provider" validate:"omitempty,oneof=log lark"`
	LarkWebhook string `mapstructure:"lark_webhook" validate:"required_if=Provider lark"`
}

// JobsConfig 定时任务配置
// cron 表达式格式: 秒 分 时 日 月 周
type JobsConfig struct {
	NightlyBuilds         string `mapstructure:"nightly_builds"`
	TimeoutBuilds         string `mapstructure:"timeout_builds"`
	ArchiveBuildLogs      string `mapstructure:"archive_build_logs"`
	VerifyRepositories    string `mapstructure:"verify_repositories"`
	RevokeInactiveMembers string `mapstructure:"revoke_inactive_members"`
	BuildTimeout          string `mapstructure:"build_timeout"`
	InactiveUserDays      int    `mapstructure:"inactive_user_days" validate:"gt=0"`
	Concurrency           int    `mapstructure:"concurrency" validate:"gte=0"` // 单个任务内子任务并发数, 0 表示不限制
}

// GetBuildTimeout 获取构建超时时间
func (c *JobsConfig) GetBuildTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.BuildTimeout)
	if err != nil {
		return 0, fmt.Errorf("解析 build_timeout 失败: %w", err)
	}
	return d, nil
}

// GetTimeout 获取平台请求超时时间
func (c *GitConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "pages-cd")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("app.status_context", "pages")
	v.SetDefault("git.platform", "github")
	v.SetDefault("git.timeout", "30s")
	v.SetDefault("redis.build_queue", "pages:builds")
	v.SetDefault("notification.provider", "log")
	v.SetDefault("jobs.nightly_builds", "0 0 5 * * *")
	v.SetDefault("jobs.timeout_builds", "0 */15 * * * *")
	v.SetDefault("jobs.archive_build_logs", "0 0 4 * * *")
	v.SetDefault("jobs.verify_repositories", "0 0 3 * * *")
	v.SetDefault("jobs.revoke_inactive_members", "0 0 2 * * *")
	v.SetDefault("jobs.build_timeout", "45m")
	v.SetDefault("jobs.inactive_user_days", 90)
	v.SetDefault("jobs.concurrency", 8)
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// 读取环境变量
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("配置校验失败: %s", utils.FormatValidationError(err))
	}
	if _, err := c.Jobs.GetBuildTimeout(); err != nil {
		return err
	}
	return nil
}

// GetDSN 获取数据库DSN
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}
