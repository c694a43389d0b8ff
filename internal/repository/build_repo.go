package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"pages-cd/internal/model"
	"pages-cd/pkg/constants"
	pkgErrors "pages-cd/pkg/errors"
)

// BuildRepository 构建记录仓储接口
type BuildRepository interface {
	Create(build *model.Build) error
	FindByID(id int64) (*model.Build, error)
	ListUnfinishedCreatedBefore(before time.Time) ([]*model.Build, error)
	ListIDsCompletedBetween(start, end time.Time) ([]int64, error)
	UpdateState(id int64, state string) error
	MarkError(id int64, message string, at time.Time) (bool, error)
	UpdateLogsKey(id int64, key string) error
}

type buildRepository struct {
	db *gorm.DB
}

// NewBuildRepository 创建构建记录仓储实例
func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepository{db: db}
}

// Create 创建构建记录
func (r *buildRepository) Create(build *model.Build) error {
	if err := r.db.Create(build).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "创建构建记录失败", err)
	}
	return nil
}

// FindByID 根据ID查询构建记录, 同时加载站点及站点用户
func (r *buildRepository) FindByID(id int64) (*model.Build, error) {
	var build model.Build
	err := r.db.Preload("Site").Preload("Site.Users").Preload("User").
		First(&build, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询构建记录失败", err)
	}
	return &build, nil
}

// ListUnfinishedCreatedBefore 查询指定时间之前创建且未结束的构建
func (r *buildRepository) ListUnfinishedCreatedBefore(before time.Time) ([]*model.Build, error) {
	var builds []*model.Build
	err := r.db.Preload("Site").Preload("Site.Users").
		Where("state IN ? AND created_at < ?", constants.UnfinishedBuildStates, before).
		Order("id ASC").
		Find(&builds).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询超时构建失败", err)
	}
	return builds, nil
}

// ListIDsCompletedBetween 查询 [start, end) 内结束的构建ID
func (r *buildRepository) ListIDsCompletedBetween(start, end time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.Build{}).
		Where("completed_at >= ? AND completed_at < ?", start, end).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询已完成构建失败", err)
	}
	return ids, nil
}

// UpdateState 更新构建状态
func (r *buildRepository) UpdateState(id int64, state string) error {
	if err := r.db.Model(&model.Build{}).Where("id = ?", id).Update("state", state).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新构建状态失败", err)
	}
	return nil
}

// MarkError 将未结束的构建置为 error, 返回是否实际更新
func (r *buildRepository) MarkError(id int64, message string, at time.Time) (bool, error) {
	result := r.db.Model(&model.Build{}).
		Where("id = ? AND state IN ?", id, constants.UnfinishedBuildStates).
		Updates(map[string]interface{}{
			"state":        constants.BuildStateError,
			"error":        message,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新构建状态失败", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateLogsKey 记录日志归档位置
func (r *buildRepository) UpdateLogsKey(id int64, key string) error {
	if err := r.db.Model(&model.Build{}).Where("id = ?", id).Update("logs_s3_key", key).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新日志归档位置失败", err)
	}
	return nil
}
