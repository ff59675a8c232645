package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storehub_v1/internal/model"
)

// DomainRepository 域名仓储接口（中央库）
type DomainRepository interface {
	Create(ctx context.Context, domain *model.Domain) error
	GetByID(ctx context.Context, id int64) (*model.Domain, error)
	GetByDomain(ctx context.Context, domain string) (*model.Domain, error)
	ListByStoreID(ctx context.Context, storeID int64) ([]model.Domain, error)
	Update(ctx context.Context, domain *model.Domain) error
	Delete(ctx context.Context, id int64) error
	ClearPrimary(ctx context.Context, storeID int64) error
	MarkVerified(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64) error
}

type domainRepo struct {
	db *gorm.DB
}

// NewDomainRepository 创建域名仓储
func NewDomainRepository(db *gorm.DB) DomainRepository {
	return &domainRepo{db: db}
}

func (r *domainRepo) Create(ctx context.Context, domain *model.Domain) error {
	return r.db.WithContext(ctx).Create(domain).Error
}

func (r *domainRepo) GetByID(ctx context.Context, id int64) (*model.Domain, error) {
	var d model.Domain
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *domainRepo) GetByDomain(ctx context.Context, domain string) (*model.Domain, error) {
	var d model.Domain
	if err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *domainRepo) ListByStoreID(ctx context.Context, storeID int64) ([]model.Domain, error) {
	var domains []model.Domain
	err := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("id").Find(&domains).Error
	return domains, err
}

func (r *domainRepo) Update(ctx context.Context, domain *model.Domain) error {
	return r.db.WithContext(ctx).Save(domain).Error
}

func (r *domainRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Domain{}, id).Error
}

// ClearPrimary 取消店铺下现有主域名（换主域名前调用，保证至多一个）
func (r *domainRepo) ClearPrimary(ctx context.Context, storeID int64) error {
	return r.db.WithContext(ctx).Model(&model.Domain{}).
		Where("store_id = ? AND is_primary = ?", storeID, true).
		Update("is_primary", false).Error
}

func (r *domainRepo) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Domain{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.DomainStatusActive,
			"verified_at": at,
		}).Error
}

func (r *domainRepo) MarkFailed(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Domain{}).Where("id = ?", id).
		Update("status", model.DomainStatusFailed).Error
}
