package database

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
)

// newTestManager 租户库落在临时目录下的 sqlite 文件
func newTestManager(t *testing.T) *TenantManager {
	t.Helper()
	dir := t.TempDir()

	m := NewTenantManager(func(name string) gorm.Dialector {
		return sqlite.Open(SqliteDBPath(dir, name))
	}, NewSqliteClusterAdmin(dir))
	m.SetLogLevel(logger.Silent)

	t.Cleanup(m.Close)
	return m
}

func provisionedStore(id int64, dbName string) *model.Store {
	s := &model.Store{Status: model.StoreStatusActive, IsActive: true}
	s.ID = id
	s.DatabaseName = &dbName
	return s
}

// TestConnForUnprovisioned 未建库的店铺必须拿不到句柄
func TestConnForUnprovisioned(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	store := &model.Store{}
	store.ID = 1
	if _, err := m.ConnFor(ctx, store); err != ErrTenantNotProvisioned {
		t.Fatalf("期望 ErrTenantNotProvisioned, 实际 %v", err)
	}
	if _, err := m.ConnFor(ctx, nil); err != ErrTenantNotProvisioned {
		t.Fatalf("nil 店铺期望 ErrTenantNotProvisioned, 实际 %v", err)
	}
}

// TestConnForReuse 同店铺重复取句柄应复用缓存
func TestConnForReuse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	store := provisionedStore(1, "storehub_store_1")
	if err := m.Admin().CreateDatabase(ctx, store.DBName()); err != nil {
		t.Fatalf("建库失败: %v", err)
	}

	if _, err := m.ConnFor(ctx, store); err != nil {
		t.Fatalf("首次取句柄失败: %v", err)
	}
	if _, err := m.ConnFor(ctx, store); err != nil {
		t.Fatalf("二次取句柄失败: %v", err)
	}
	if got := m.CachedCount(); got != 1 {
		t.Fatalf("缓存句柄数期望 1, 实际 %d", got)
	}
}

// TestPurge 清除句柄后缓存应为空
func TestPurge(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	store := provisionedStore(1, "storehub_store_1")
	if err := m.Admin().CreateDatabase(ctx, store.DBName()); err != nil {
		t.Fatalf("建库失败: %v", err)
	}
	if _, err := m.ConnFor(ctx, store); err != nil {
		t.Fatalf("取句柄失败: %v", err)
	}

	m.Purge(store.DBName())
	if got := m.CachedCount(); got != 0 {
		t.Fatalf("清除后缓存句柄数期望 0, 实际 %d", got)
	}

	// 清除不存在的库名不应 panic
	m.Purge("no_such_db")
}

// TestCrossTenantIsolation 两个店铺各写各的库，读取互不可见
func TestCrossTenantIsolation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	storeA := provisionedStore(1, "storehub_store_1")
	storeB := provisionedStore(2, "storehub_store_2")

	for _, s := range []*model.Store{storeA, storeB} {
		if err := m.Admin().CreateDatabase(ctx, s.DBName()); err != nil {
			t.Fatalf("建库失败: %v", err)
		}
		err := m.WithTenant(ctx, s, func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Product{})
		})
		if err != nil {
			t.Fatalf("迁移失败: %v", err)
		}
	}

	// 只往 A 写一条商品
	err := m.WithTenant(ctx, storeA, func(tx *gorm.DB) error {
		return tx.Create(&model.Product{Name: "只属于A的商品", Slug: "a-only"}).Error
	})
	if err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	countIn := func(s *model.Store) int64 {
		var count int64
		err := m.WithTenant(ctx, s, func(tx *gorm.DB) error {
			return tx.Model(&model.Product{}).Count(&count).Error
		})
		if err != nil {
			t.Fatalf("统计失败: %v", err)
		}
		return count
	}

	if got := countIn(storeA); got != 1 {
		t.Fatalf("店铺A商品数期望 1, 实际 %d", got)
	}
	if got := countIn(storeB); got != 0 {
		t.Fatalf("店铺B不应看到A的商品, 实际 %d 条", got)
	}
}

// TestSqliteAdminIdempotence 建库冲突与删库幂等
func TestSqliteAdminIdempotence(t *testing.T) {
	dir := t.TempDir()
	admin := NewSqliteClusterAdmin(dir)
	ctx := context.Background()

	if err := admin.CreateDatabase(ctx, "db1"); err != nil {
		t.Fatalf("首次建库失败: %v", err)
	}
	if err := admin.CreateDatabase(ctx, "db1"); err != ErrDatabaseAlreadyExists {
		t.Fatalf("重复建库期望 ErrDatabaseAlreadyExists, 实际 %v", err)
	}

	exists, err := admin.DatabaseExists(ctx, "db1")
	if err != nil || !exists {
		t.Fatalf("库应存在: exists=%v err=%v", exists, err)
	}

	if err := admin.DropDatabase(ctx, "db1"); err != nil {
		t.Fatalf("删库失败: %v", err)
	}
	// 幂等：再删一次不报错
	if err := admin.DropDatabase(ctx, "db1"); err != nil {
		t.Fatalf("重复删库不应报错: %v", err)
	}

	exists, err = admin.DatabaseExists(ctx, "db1")
	if err != nil || exists {
		t.Fatalf("库应已删除: exists=%v err=%v", exists, err)
	}
}
