package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"pages-cd/internal/model"
	pkgErrors "pages-cd/pkg/errors"
)

type UserRepository interface {
	FindByID(id int64) (*model.User, error)
	ListInactiveMembers(cutoff time.Time) ([]*model.User, error)
	RevokeMemberships(id int64) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询用户失败", err)
	}
	return &user, nil
}

// ListInactiveMembers 查询仍有站点权限但长期未登录的用户
// 从未登录的占位用户按创建时间判断
func (r *userRepository) ListInactiveMembers(cutoff time.Time) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Model(&model.User{}).
		Where("EXISTS (SELECT 1 FROM site_users su WHERE su.user_id = users.id)").
		Where("(signed_in_at IS NOT NULL AND signed_in_at < ?) OR (signed_in_at IS NULL AND created_at < ?)", cutoff, cutoff).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询不活跃用户失败", err)
	}
	return users, nil
}

// RevokeMemberships 移除用户全部站点权限并清空访问令牌
func (r *userRepository) RevokeMemberships(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		user := &model.User{}
		user.ID = id
		if err := tx.Model(user).Association("Sites").Clear(); err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "移除站点权限失败", err)
		}
		if err := tx.Model(&model.User{}).Where("id = ?", id).Update("github_access_token", "").Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "清空访问令牌失败", err)
		}
		return nil
	})
}
