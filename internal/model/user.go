package model

import "time"

// User 站点授权用户
type User struct {
	BaseModelWithSoftDelete
	Username string  `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email    *string `gorm:"size:100" json:"email"`

	// 外部平台访问令牌, AES 加密存储; 为空表示已撤销或从未关联
	GithubAccessToken string `gorm:"column:github_access_token;type:text" json:"-"`

	// 为空表示从未通过本系统登录, 仅是占位用户
	SignedInAt *time.Time `json:"signed_in_at"`

	Sites []*Site `gorm:"many2many:site_users;" json:"sites,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// HasCredential 是否持有访问令牌
func (u *User) HasCredential() bool {
	return u.GithubAccessToken != "" && u.SignedInAt != nil
}
