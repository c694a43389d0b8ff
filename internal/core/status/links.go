package status

import (
	"fmt"
	"strings"

	"pages-cd/internal/model"
	"pages-cd/internal/pkg/config"
)

// Links 构建相关的页面地址
type Links struct {
	Hostname    string
	ProxyDomain string
}

// NewLinks 由应用配置创建
func NewLinks(cfg *config.AppConfig) *Links {
	return &Links{
		Hostname:    strings.TrimSuffix(cfg.Hostname, "/"),
		ProxyDomain: strings.Trim(cfg.ProxyDomain, "./"),
	}
}

// LogsURL 构建日志页面
func (l *Links) LogsURL(build *model.Build) string {
	return fmt.Sprintf("%s/sites/%d/builds/%d/logs", l.Hostname, build.SiteID, build.ID)
}

// PreviewURL 构建产物的预览地址, 缺少 bucket / 域名 / 分支时不可解析
func (l *Links) PreviewURL(build *model.Build, site *model.Site) (string, bool) {
	if site == nil || site.AwsBucketName == "" || l.ProxyDomain == "" || build.Branch == "" {
		return "", false
	}

	base := fmt.Sprintf("https://%s.%s", site.AwsBucketName, l.ProxyDomain)
	switch {
	case build.Branch == site.DefaultBranch:
		return fmt.Sprintf("%s/site/%s/%s/", base, site.Owner, site.Repository), true
	case site.DemoBranch != nil && build.Branch == *site.DemoBranch:
		return fmt.Sprintf("%s/demo/%s/%s/", base, site.Owner, site.Repository), true
	default:
		return fmt.Sprintf("%s/preview/%s/%s/%s/", base, site.Owner, site.Repository, build.Branch), true
	}
}
