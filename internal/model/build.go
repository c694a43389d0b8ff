package model

import (
	"time"

	"pages-cd/pkg/constants"
)

const BuildTableName = "builds"

// Build 构建记录
type Build struct {
	BaseModel

	State  string  `gorm:"size:20;not null;index" json:"state"` // created/queued/processing/success/error
	Branch string  `gorm:"size:255;not null" json:"branch"`
	Error  *string `gorm:"type:text" json:"error"`

	// Git 提交信息, cloned_commit_sha 仅在源码拉取成功后写入
	RequestedCommitSHA string  `gorm:"column:requested_commit_sha;size:64" json:"requested_commit_sha"`
	ClonedCommitSHA    *string `gorm:"column:cloned_commit_sha;size:64" json:"cloned_commit_sha"`

	UserID int64 `gorm:"column:user_id;not null;index" json:"user_id"`
	SiteID int64 `gorm:"column:site_id;not null;index" json:"site_id"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at"`

	// 日志归档后的对象 key
	LogsS3Key *string `gorm:"column:logs_s3_key;size:255" json:"logs_s3_key"`

	// 关联关系
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Site *Site `gorm:"foreignKey:SiteID" json:"site,omitempty"`
}

// TableName 指定表名
func (Build) TableName() string {
	return BuildTableName
}

// CommitSHA 上报状态使用的提交, 优先使用已拉取的提交
func (b *Build) CommitSHA() string {
	if b.ClonedCommitSHA != nil && *b.ClonedCommitSHA != "" {
		return *b.ClonedCommitSHA
	}
	return b.RequestedCommitSHA
}

// IsFinished 是否已结束
func (b *Build) IsFinished() bool {
	return b.State == constants.BuildStateSuccess || b.State == constants.BuildStateError
}
