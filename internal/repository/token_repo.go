package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storehub_v1/internal/model"
)

// TokenRepository 访问令牌仓储接口（中央库）
type TokenRepository interface {
	Create(ctx context.Context, token *model.PersonalAccessToken) error
	GetByHash(ctx context.Context, hash string) (*model.PersonalAccessToken, error)
	TouchLastUsed(ctx context.Context, id int64, at time.Time) error
	DeleteByTokenable(ctx context.Context, tokenableType string, tokenableID int64) error
	DeleteByStoreID(ctx context.Context, storeID int64) error
}

type tokenRepo struct {
	db *gorm.DB
}

// NewTokenRepository 创建令牌仓储
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) Create(ctx context.Context, token *model.PersonalAccessToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepo) GetByHash(ctx context.Context, hash string) (*model.PersonalAccessToken, error) {
	var token model.PersonalAccessToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// TouchLastUsed 更新最近使用时间（认证成功后的副作用）
func (r *tokenRepo) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.PersonalAccessToken{}).
		Where("id = ?", id).Update("last_used_at", at).Error
}

func (r *tokenRepo) DeleteByTokenable(ctx context.Context, tokenableType string, tokenableID int64) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("tokenable_type = ? AND tokenable_id = ?", tokenableType, tokenableID).
		Delete(&model.PersonalAccessToken{}).Error
}

// DeleteByStoreID 店铺强删时回收其全部员工令牌
func (r *tokenRepo) DeleteByStoreID(ctx context.Context, storeID int64) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("store_id = ?", storeID).
		Delete(&model.PersonalAccessToken{}).Error
}
