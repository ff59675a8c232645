package repository

import (
	"context"

	"gorm.io/gorm"

	"storehub_v1/internal/model"
)

// OwnerRepository 店主仓储接口（中央库）
type OwnerRepository interface {
	Create(ctx context.Context, owner *model.Owner) error
	GetByID(ctx context.Context, id int64) (*model.Owner, error)
	GetByEmail(ctx context.Context, email string) (*model.Owner, error)
}

type ownerRepo struct {
	db *gorm.DB
}

// NewOwnerRepository 创建店主仓储
func NewOwnerRepository(db *gorm.DB) OwnerRepository {
	return &ownerRepo{db: db}
}

func (r *ownerRepo) Create(ctx context.Context, owner *model.Owner) error {
	return r.db.WithContext(ctx).Create(owner).Error
}

func (r *ownerRepo) GetByID(ctx context.Context, id int64) (*model.Owner, error) {
	var owner model.Owner
	if err := r.db.WithContext(ctx).First(&owner, id).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *ownerRepo) GetByEmail(ctx context.Context, email string) (*model.Owner, error) {
	var owner model.Owner
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&owner).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}
