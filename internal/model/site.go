package model

import (
	"time"

	"gorm.io/datatypes"

	"pages-cd/pkg/constants"
)

const SiteTableName = "sites"

// Site 站点, 对应一个外部代码仓库
type Site struct {
	BaseModelWithSoftDelete

	Owner         string  `gorm:"size:255;not null;index:idx_site_repo,priority:1" json:"owner"`
	Repository    string  `gorm:"size:255;not null;index:idx_site_repo,priority:2" json:"repository"`
	DefaultBranch string  `gorm:"size:255;not null" json:"default_branch"`
	DemoBranch    *string `gorm:"size:255" json:"demo_branch"`

	AwsBucketName   string `gorm:"size:255" json:"aws_bucket_name"`
	AwsBucketRegion string `gorm:"size:50" json:"aws_bucket_region"`

	Config           datatypes.JSONMap `gorm:"type:json" json:"config,omitempty"`
	RepoLastVerified *time.Time        `json:"repo_last_verified"`

	Users []*User `gorm:"many2many:site_users;" json:"users,omitempty"`
}

func (Site) TableName() string {
	return SiteTableName
}

// FullName owner/repository
func (s *Site) FullName() string {
	return s.Owner + "/" + s.Repository
}

// NightlyBranches 需要每晚构建的分支
func (s *Site) NightlyBranches() []string {
	var branches []string
	if s.configValue(constants.SiteConfigSchedule) == constants.ScheduleNightly && s.DefaultBranch != "" {
		branches = append(branches, s.DefaultBranch)
	}
	if s.configValue(constants.SiteConfigDemoSchedule) == constants.ScheduleNightly &&
		s.DemoBranch != nil && *s.DemoBranch != "" {
		branches = append(branches, *s.DemoBranch)
	}
	return branches
}

func (s *Site) configValue(key string) string {
	if s.Config == nil {
		return ""
	}
	v, _ := s.Config[key].(string)
	return v
}
