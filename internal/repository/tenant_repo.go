package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storehub_v1/internal/model"
)

// ==================== 租户库仓储 ====================
// 租户句柄是请求级对象（由 TenantManager 按店铺分发），
// 所以这里的方法都显式接收 *gorm.DB，不在构造时固定连接

// ProductRepository 商品仓储接口（租户库）
type ProductRepository interface {
	Create(ctx context.Context, db *gorm.DB, product *model.Product) error
	GetByID(ctx context.Context, db *gorm.DB, id int64) (*model.Product, error)
	List(ctx context.Context, db *gorm.DB, page, pageSize int) ([]model.Product, int64, error)
	Update(ctx context.Context, db *gorm.DB, product *model.Product) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}

type productRepo struct{}

// NewProductRepository 创建商品仓储
func NewProductRepository() ProductRepository {
	return &productRepo{}
}

func (r *productRepo) Create(ctx context.Context, db *gorm.DB, product *model.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetByID(ctx context.Context, db *gorm.DB, id int64) (*model.Product, error) {
	var p model.Product
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, db *gorm.DB, page, pageSize int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	if err := db.WithContext(ctx).Model(&model.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.WithContext(ctx).
		Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) Update(ctx context.Context, db *gorm.DB, product *model.Product) error {
	return db.WithContext(ctx).Save(product).Error
}

func (r *productRepo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

// ==================== 员工仓储 ====================

// EmployeeRepository 员工仓储接口（租户库）
type EmployeeRepository interface {
	Create(ctx context.Context, db *gorm.DB, employee *model.Employee) error
	GetByID(ctx context.Context, db *gorm.DB, id int64) (*model.Employee, error)
	GetByEmail(ctx context.Context, db *gorm.DB, email string) (*model.Employee, error)
}

type employeeRepo struct{}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository() EmployeeRepository {
	return &employeeRepo{}
}

func (r *employeeRepo) Create(ctx context.Context, db *gorm.DB, employee *model.Employee) error {
	return db.WithContext(ctx).Create(employee).Error
}

func (r *employeeRepo) GetByID(ctx context.Context, db *gorm.DB, id int64) (*model.Employee, error) {
	var e model.Employee
	if err := db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *employeeRepo) GetByEmail(ctx context.Context, db *gorm.DB, email string) (*model.Employee, error) {
	var e model.Employee
	if err := db.WithContext(ctx).Where("email = ?", email).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ==================== 设置仓储 ====================

// SettingRepository 店铺设置仓储接口（租户库）
type SettingRepository interface {
	Get(ctx context.Context, db *gorm.DB, key string) (*model.Setting, error)
	Set(ctx context.Context, db *gorm.DB, key string, value datatypes.JSON) error
	All(ctx context.Context, db *gorm.DB) ([]model.Setting, error)
}

type settingRepo struct{}

// NewSettingRepository 创建设置仓储
func NewSettingRepository() SettingRepository {
	return &settingRepo{}
}

func (r *settingRepo) Get(ctx context.Context, db *gorm.DB, key string) (*model.Setting, error) {
	var s model.Setting
	if err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Set 不存在则插入，存在则覆盖
func (r *settingRepo) Set(ctx context.Context, db *gorm.DB, key string, value datatypes.JSON) error {
	var s model.Setting
	err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return db.WithContext(ctx).Create(&model.Setting{Key: key, Value: value}).Error
		}
		return err
	}
	s.Value = value
	return db.WithContext(ctx).Save(&s).Error
}

func (r *settingRepo) All(ctx context.Context, db *gorm.DB) ([]model.Setting, error) {
	var settings []model.Setting
	err := db.WithContext(ctx).Order("key").Find(&settings).Error
	return settings, err
}
