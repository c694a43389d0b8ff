package git

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PlatformType 平台类型
type PlatformType string

const (
	PlatformGitea  PlatformType = "gitea"
	PlatformGitHub PlatformType = "github"
)

const defaultGitHubBaseURL = "https://api.github.com"

// Permissions 令牌在仓库上的有效权限
type Permissions struct {
	Push  bool `json:"push"`
	Admin bool `json:"admin"`
}

// CanWrite 是否可以写入提交状态
func (p Permissions) CanWrite() bool {
	return p.Push || p.Admin
}

// NormalizePermissions 将平台返回的权限对象规整为固定结构, 缺失字段视为无权限
func NormalizePermissions(raw map[string]bool) Permissions {
	return Permissions{
		Push:  raw["push"],
		Admin: raw["admin"],
	}
}

// StatusRequest 提交状态请求
type StatusRequest struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context,omitempty"`
}

// StatusProvider 代码托管平台的仓库状态接口
type StatusProvider interface {
	// GetPermissions 查询令牌在仓库上的权限
	GetPermissions(ctx context.Context, token, owner, repo string) (Permissions, error)

	// SetStatus 为提交写入状态
	SetStatus(ctx context.Context, token, owner, repo, sha string, req StatusRequest) error

	// GetContent 读取指定提交下的文件内容
	GetContent(ctx context.Context, token, owner, repo, path, ref string) (string, error)

	// GetPlatformType 获取平台类型
	GetPlatformType() PlatformType
}

// ProviderConfig 平台配置
type ProviderConfig struct {
	Platform   PlatformType
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // 为空时按 Timeout 创建
}

// NewProvider 按平台类型创建 StatusProvider
func NewProvider(cfg ProviderConfig) (StatusProvider, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	switch cfg.Platform {
	case PlatformGitHub, "":
		// GitHub可以省略BaseURL，使用默认值
		if baseURL == "" {
			baseURL = defaultGitHubBaseURL
		}
		return newRESTProvider(PlatformGitHub, baseURL, httpClient), nil
	case PlatformGitea:
		if baseURL == "" {
			return nil, fmt.Errorf("gitea 平台 BaseURL 不能为空")
		}
		return newRESTProvider(PlatformGitea, baseURL+"/api/v1", httpClient), nil
	default:
		return nil, fmt.Errorf("不支持的平台类型: %s", cfg.Platform)
	}
}
