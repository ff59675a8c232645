package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/database"
)

// ErrMigrationFailed 租户库迁移失败
var ErrMigrationFailed = errors.New("tenant migration failed")

// ==================== 建库服务 ====================

// ProvisionService 租户库生命周期：建库 → 迁移 → 种子 → 就绪，以及对称的删库。
// 每一步失败都把店铺留在 pending（可观测、可重试），不留无名的半成品状态。
type ProvisionService struct {
	storeRepo repository.StoreRepository
	manager   *database.TenantManager
	prefix    string
}

// NewProvisionService 创建建库服务
func NewProvisionService(storeRepo repository.StoreRepository, manager *database.TenantManager, prefix string) *ProvisionService {
	return &ProvisionService{
		storeRepo: storeRepo,
		manager:   manager,
		prefix:    prefix,
	}
}

// databaseNameFor 派生库名：前缀 + 店铺ID。
// 用 ID 不用 slug —— slug 删店后可复用，ID 不会，避免撞库。
// 该函数只在建库时调用一次；删库/迁移一律读 Store 行上存的 database_name。
func (s *ProvisionService) databaseNameFor(store *model.Store) string {
	return s.prefix + strconv.FormatInt(store.ID, 10)
}

// CreateTenantDatabase 完整建库流水线
// force=false 时已建库的店铺返回 ErrDatabaseAlreadyExists 且不动现有库；
// force=true 先删后建
func (s *ProvisionService) CreateTenantDatabase(ctx context.Context, store *model.Store, force bool) error {
	if store.IsProvisioned() {
		if !force {
			// 建库成功但迁移/种子没跑完的店铺：database_name 已落库而状态还在
			// pending。这里必须从迁移一步续跑，不能报已存在——否则重试任务
			// 每轮都撞在这个分支上，半成品永远救不回来
			if store.Status == model.StoreStatusPending {
				return s.resumeProvisioning(ctx, store)
			}
			return database.ErrDatabaseAlreadyExists
		}
		if err := s.DeleteTenantDatabase(ctx, store); err != nil {
			return fmt.Errorf("force 重建前删库失败: %w", err)
		}
	}

	name := s.databaseNameFor(store)

	// creating：建物理库。库名唯一，并发重复建库靠捕获冲突串行化
	log.Printf("[Provision] 店铺 %d (%s) 开始建库: %s", store.ID, store.Slug, name)
	if err := s.manager.Admin().CreateDatabase(ctx, name); err != nil {
		if !errors.Is(err, database.ErrDatabaseAlreadyExists) || !force {
			return err
		}
		// force 且物理库残留（店铺行丢了引用）：删掉重来
		s.manager.Purge(name)
		if err := s.manager.Admin().DropDatabase(ctx, name); err != nil {
			return err
		}
		if err := s.manager.Admin().CreateDatabase(ctx, name); err != nil {
			return err
		}
	}

	// 物理库建成之后才落引用，中途崩溃不会留悬空的 database_name
	now := time.Now()
	if err := s.storeRepo.MarkProvisioned(ctx, store.ID, name, now); err != nil {
		return fmt.Errorf("记录租户库引用失败: %w", err)
	}
	store.DatabaseName = &name
	store.DatabaseCreatedAt = &now

	// migrating：迁移只打租户库，绝不碰中央库
	if err := s.MigrateTenant(ctx, store, false); err != nil {
		return err
	}

	// seeding
	if err := s.SeedTenant(ctx, store); err != nil {
		return err
	}

	// ready
	if err := s.storeRepo.MarkReady(ctx, store.ID); err != nil {
		return err
	}
	store.Status = model.StoreStatusActive

	log.Printf("[Provision] 店铺 %d (%s) 建库完成: %s", store.ID, store.Slug, name)
	return nil
}

// resumeProvisioning 半成品续跑：库名以 Store 行存的为准，物理库缺了先补，
// 然后直接走迁移 → 种子 → 就绪。迁移和种子都幂等，重复续跑无副作用
func (s *ProvisionService) resumeProvisioning(ctx context.Context, store *model.Store) error {
	name := store.DBName()
	log.Printf("[Provision] 店铺 %d (%s) 续跑建库流水线: %s", store.ID, store.Slug, name)

	exists, err := s.manager.Admin().DatabaseExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.manager.Admin().CreateDatabase(ctx, name); err != nil {
			return err
		}
	}

	if err := s.MigrateTenant(ctx, store, false); err != nil {
		return err
	}
	if err := s.SeedTenant(ctx, store); err != nil {
		return err
	}
	if err := s.storeRepo.MarkReady(ctx, store.ID); err != nil {
		return err
	}
	store.Status = model.StoreStatusActive

	log.Printf("[Provision] 店铺 %d (%s) 建库完成: %s", store.ID, store.Slug, name)
	return nil
}

// MigrateTenant 对店铺租户库跑 schema 迁移
// fresh=true 先清掉已知表再建
func (s *ProvisionService) MigrateTenant(ctx context.Context, store *model.Store, fresh bool) error {
	return s.manager.WithTenant(ctx, store, func(tx *gorm.DB) error {
		if fresh {
			if err := tx.Migrator().DropTable(model.TenantModels()...); err != nil {
				return fmt.Errorf("%w: 清表失败: %v", ErrMigrationFailed, err)
			}
		}
		if err := tx.AutoMigrate(model.TenantModels()...); err != nil {
			return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
		return nil
	})
}

// SeedTenant 写入默认数据，全部按唯一键 FirstOrCreate，重复执行不产生重复行
func (s *ProvisionService) SeedTenant(ctx context.Context, store *model.Store) error {
	return s.manager.WithTenant(ctx, store, func(tx *gorm.DB) error {
		// 默认设置
		settings := map[string]string{
			"store_name": store.Name,
			"currency":   "USD",
			"timezone":   "UTC",
			"locale":     "en",
		}
		for key, val := range settings {
			value := datatypes.JSON([]byte(strconv.Quote(val)))
			if err := tx.WithContext(ctx).
				Where(model.Setting{Key: key}).
				Attrs(model.Setting{Key: key, Value: value}).
				FirstOrCreate(&model.Setting{}).Error; err != nil {
				return fmt.Errorf("写入默认设置 %s 失败: %w", key, err)
			}
		}

		// 营业时间：周一到周五 09:00-18:00，周末歇业
		for weekday := 0; weekday < 7; weekday++ {
			hour := model.OperatingHour{
				Weekday:  weekday,
				OpensAt:  "09:00",
				ClosesAt: "18:00",
				IsClosed: weekday == 0 || weekday == 6,
			}
			if err := tx.WithContext(ctx).
				Where(model.OperatingHour{Weekday: weekday}).
				Attrs(hour).
				FirstOrCreate(&model.OperatingHour{}).Error; err != nil {
				return fmt.Errorf("写入营业时间失败: %w", err)
			}
		}

		// 导航菜单
		menus := []model.NavigationMenu{
			{Handle: "main", Title: "Main menu", Items: datatypes.JSON([]byte(`[{"title":"Home","url":"/"},{"title":"Catalog","url":"/products"}]`))},
			{Handle: "footer", Title: "Footer menu", Items: datatypes.JSON([]byte(`[{"title":"About","url":"/pages/about"},{"title":"Contact","url":"/pages/contact"}]`))},
		}
		for _, menu := range menus {
			if err := tx.WithContext(ctx).
				Where(model.NavigationMenu{Handle: menu.Handle}).
				Attrs(menu).
				FirstOrCreate(&model.NavigationMenu{}).Error; err != nil {
				return fmt.Errorf("写入导航菜单失败: %w", err)
			}
		}

		// 邮件模板
		templates := []model.EmailTemplate{
			{Code: "order_confirmation", Subject: "Your order is confirmed", Body: "Hi {{customer_name}}, thanks for your order {{order_no}}."},
			{Code: "order_shipped", Subject: "Your order is on the way", Body: "Order {{order_no}} has shipped."},
			{Code: "password_reset", Subject: "Reset your password", Body: "Click here to reset: {{reset_url}}"},
		}
		for _, tpl := range templates {
			if err := tx.WithContext(ctx).
				Where(model.EmailTemplate{Code: tpl.Code}).
				Attrs(tpl).
				FirstOrCreate(&model.EmailTemplate{}).Error; err != nil {
				return fmt.Errorf("写入邮件模板失败: %w", err)
			}
		}

		// 税率分类
		taxes := []model.TaxClass{
			{Name: "Standard", Rate: 0.1, IsDefault: true},
			{Name: "Reduced", Rate: 0.05},
			{Name: "Zero", Rate: 0},
		}
		for _, tax := range taxes {
			if err := tx.WithContext(ctx).
				Where(model.TaxClass{Name: tax.Name}).
				Attrs(tax).
				FirstOrCreate(&model.TaxClass{}).Error; err != nil {
				return fmt.Errorf("写入税率分类失败: %w", err)
			}
		}

		return nil
	})
}

// DeleteTenantDatabase 删除租户库（幂等：库已不存在不算错）
// 库名一律以 Store 行存的 database_name 为准，绝不重新派生
func (s *ProvisionService) DeleteTenantDatabase(ctx context.Context, store *model.Store) error {
	if !store.IsProvisioned() {
		return nil
	}
	name := store.DBName()

	// 先清句柄再删库，防止缓存连接指向已销毁的库
	s.manager.Purge(name)

	if err := s.manager.Admin().DropDatabase(ctx, name); err != nil {
		return err
	}
	if err := s.storeRepo.ClearProvisioned(ctx, store.ID); err != nil {
		return err
	}
	store.DatabaseName = nil
	store.DatabaseCreatedAt = nil

	log.Printf("[Provision] 店铺 %d (%s) 租户库已删除: %s", store.ID, store.Slug, name)
	return nil
}

// ==================== 批量操作 ====================

// BatchResult 批量建库/迁移结果
type BatchResult struct {
	Succeeded int
	Failed    int
	Errors    map[int64]error // storeID -> error
}

// ProvisionAll 给所有店铺建库，店铺之间互不影响，单店失败不终止批次
func (s *ProvisionService) ProvisionAll(ctx context.Context, force bool) (*BatchResult, error) {
	stores, err := s.storeRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Errors: make(map[int64]error)}
	for i := range stores {
		store := &stores[i]
		if err := s.CreateTenantDatabase(ctx, store, force); err != nil {
			log.Printf("[Provision] 店铺 %d (%s) 建库失败: %v", store.ID, store.Slug, err)
			result.Failed++
			result.Errors[store.ID] = err
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// MigrateAll 迁移所有已建库店铺
func (s *ProvisionService) MigrateAll(ctx context.Context, fresh, seed bool) (*BatchResult, error) {
	stores, err := s.storeRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Errors: make(map[int64]error)}
	for i := range stores {
		store := &stores[i]
		if !store.IsProvisioned() {
			continue
		}
		if err := s.migrateOne(ctx, store, fresh, seed); err != nil {
			log.Printf("[Provision] 店铺 %d (%s) 迁移失败: %v", store.ID, store.Slug, err)
			result.Failed++
			result.Errors[store.ID] = err
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *ProvisionService) migrateOne(ctx context.Context, store *model.Store, fresh, seed bool) error {
	if err := s.MigrateTenant(ctx, store, fresh); err != nil {
		return err
	}
	if seed {
		return s.SeedTenant(ctx, store)
	}
	return nil
}
