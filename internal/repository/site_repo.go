package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"pages-cd/internal/model"
	pkgErrors "pages-cd/pkg/errors"
)

// SiteRepository 站点仓储接口
type SiteRepository interface {
	FindByID(id int64, opts ...QueryOption) (*model.Site, error)
	List(opts ...QueryOption) ([]*model.Site, error)
	UpdateRepoLastVerified(id int64, at time.Time) error
}

type siteRepository struct {
	db *gorm.DB
}

// NewSiteRepository 创建站点仓储实例
func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) FindByID(id int64, opts ...QueryOption) (*model.Site, error) {
	var site model.Site
	err := applyOptions(r.db, opts).First(&site, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询站点失败", err)
	}
	return &site, nil
}

func (r *siteRepository) List(opts ...QueryOption) ([]*model.Site, error) {
	var sites []*model.Site
	if err := applyOptions(r.db, opts).Order("id ASC").Find(&sites).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询站点列表失败", err)
	}
	return sites, nil
}

func (r *siteRepository) UpdateRepoLastVerified(id int64, at time.Time) error {
	if err := r.db.Model(&model.Site{}).Where("id = ?", id).Update("repo_last_verified", at).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新仓库校验时间失败", err)
	}
	return nil
}
