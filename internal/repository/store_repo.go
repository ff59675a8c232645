package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storehub_v1/internal/model"
)

// ==================== 接口定义 ====================

// StoreRepository 店铺仓储接口（中央库）
type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	GetBySlug(ctx context.Context, slug string) (*model.Store, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*model.Store, error)
	GetByCustomDomain(ctx context.Context, domain string) (*model.Store, error)
	Update(ctx context.Context, store *model.Store) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	ForceDelete(ctx context.Context, id int64) error

	// 列表查询
	ListByOwnerID(ctx context.Context, ownerID int64) ([]model.Store, error)
	ListAll(ctx context.Context) ([]model.Store, error)
	ListPending(ctx context.Context) ([]model.Store, error)
	ListExpiredTrials(ctx context.Context, now time.Time) ([]model.Store, error)

	// 建库状态
	MarkProvisioned(ctx context.Context, id int64, databaseName string, at time.Time) error
	MarkReady(ctx context.Context, id int64) error
	ClearProvisioned(ctx context.Context, id int64) error

	// 订阅
	HasActiveSubscription(ctx context.Context, storeID int64) (bool, error)
}

// ==================== 仓储实现 ====================

type storeRepo struct {
	db *gorm.DB
}

// NewStoreRepository 创建店铺仓储
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepo{db: db}
}

func (r *storeRepo) Create(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *storeRepo) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var store model.Store
	if err := r.db.WithContext(ctx).First(&store, id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) GetBySlug(ctx context.Context, slug string) (*model.Store, error) {
	var store model.Store
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) GetBySubdomain(ctx context.Context, subdomain string) (*model.Store, error) {
	var store model.Store
	if err := r.db.WithContext(ctx).Where("subdomain = ?", subdomain).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) GetByCustomDomain(ctx context.Context, domain string) (*model.Store, error) {
	var store model.Store
	if err := r.db.WithContext(ctx).Where("custom_domain = ?", domain).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) Update(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *storeRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Store{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 软删除（租户库保留）
func (r *storeRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Store{}, id).Error
}

// ForceDelete 物理删除店铺行（租户库和资产由编排器先行清理）
func (r *storeRepo) ForceDelete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&model.Store{}, id).Error
}

func (r *storeRepo) ListByOwnerID(ctx context.Context, ownerID int64) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&stores).Error
	return stores, err
}

func (r *storeRepo) ListAll(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).Order("id").Find(&stores).Error
	return stores, err
}

// ListPending 待建库（含建库失败待重试）的店铺
func (r *storeRepo) ListPending(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StoreStatusPending).
		Order("id").Find(&stores).Error
	return stores, err
}

// ListExpiredTrials 试用已到期、仍为 active 的店铺
func (r *storeRepo) ListExpiredTrials(ctx context.Context, now time.Time) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Where("trial_used = ?", true).
		Where("trial_ends_at IS NOT NULL AND trial_ends_at < ?", now).
		Where("status = ?", model.StoreStatusActive).
		Find(&stores).Error
	return stores, err
}

// MarkProvisioned 物理建库成功后落库名 + 建库时间
// 状态仍留在 pending，迁移/种子全部跑完才置 active
func (r *storeRepo) MarkProvisioned(ctx context.Context, id int64, databaseName string, at time.Time) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"database_name":       databaseName,
		"database_created_at": at,
	})
}

// MarkReady 建库流水线全部完成，店铺可用
func (r *storeRepo) MarkReady(ctx context.Context, id int64) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"status": model.StoreStatusActive,
	})
}

// ClearProvisioned 删库后清空租户库引用
func (r *storeRepo) ClearProvisioned(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Store{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"database_name":       nil,
			"database_created_at": nil,
		}).Error
}

func (r *storeRepo) HasActiveSubscription(ctx context.Context, storeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("store_id = ? AND status = ?", storeID, model.SubscriptionStatusActive).
		Count(&count).Error
	return count > 0, err
}
