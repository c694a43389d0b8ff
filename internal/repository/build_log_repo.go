package repository

import (
	"gorm.io/gorm"

	"pages-cd/internal/model"
	pkgErrors "pages-cd/pkg/errors"
)

// BuildLogRepository 构建日志仓储接口
type BuildLogRepository interface {
	ListByBuildID(buildID int64) ([]*model.BuildLog, error)
	DeleteByBuildID(buildID int64) error
}

type buildLogRepository struct {
	db *gorm.DB
}

func NewBuildLogRepository(db *gorm.DB) BuildLogRepository {
	return &buildLogRepository{db: db}
}

func (r *buildLogRepository) ListByBuildID(buildID int64) ([]*model.BuildLog, error) {
	var logs []*model.BuildLog
	if err := r.db.Where("build_id = ?", buildID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询构建日志失败", err)
	}
	return logs, nil
}

func (r *buildLogRepository) DeleteByBuildID(buildID int64) error {
	if err := r.db.Where("build_id = ?", buildID).Delete(&model.BuildLog{}).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除构建日志失败", err)
	}
	return nil
}
