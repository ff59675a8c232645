package task

import (
	"context"
	"strconv"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/internal/service"
	"storehub_v1/pkg/database"
)

func newSweepEnv(t *testing.T) (*ProvisionSweepTask, repository.StoreRepository) {
	t.Helper()
	db := newCentralDB(t)

	dir := t.TempDir()
	manager := database.NewTenantManager(func(name string) gorm.Dialector {
		return sqlite.Open(database.SqliteDBPath(dir, name))
	}, database.NewSqliteClusterAdmin(dir))
	manager.SetLogLevel(logger.Silent)
	t.Cleanup(manager.Close)

	repo := repository.NewStoreRepository(db)
	provision := service.NewProvisionService(repo, manager, "storehub_store_")
	return NewProvisionSweepTask(repo, provision), repo
}

// TestSweepProvisionsPending 一轮扫描应把 pending 店铺补建完成
func TestSweepProvisionsPending(t *testing.T) {
	task, repo := newSweepEnv(t)
	ctx := context.Background()

	store := &model.Store{
		Name: "Acme", Slug: "acme", OwnerID: 1,
		Status: model.StoreStatusPending, IsActive: true,
	}
	if err := repo.Create(ctx, store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}

	task.sweep(ctx)

	fresh, err := repo.GetByID(ctx, store.ID)
	if err != nil {
		t.Fatalf("查询店铺失败: %v", err)
	}
	if !fresh.IsProvisioned() {
		t.Fatal("扫描后店铺应已建库")
	}
	if fresh.Status != model.StoreStatusActive {
		t.Fatalf("扫描后状态应为 active, 实际 %s", fresh.Status)
	}

	// 成功后重试计数应清零
	task.mu.Lock()
	_, tracked := task.attempts[store.ID]
	task.mu.Unlock()
	if tracked {
		t.Fatal("补建成功后不应再保留重试计数")
	}
}

// TestSweepRecoversInterruptedStore 建库中途挂掉的店铺（库名已落库、
// 迁移没跑完、状态还在 pending）下一轮扫描应续跑救回，而不是反复报已存在
func TestSweepRecoversInterruptedStore(t *testing.T) {
	task, repo := newSweepEnv(t)
	ctx := context.Background()

	store := &model.Store{
		Name: "Acme", Slug: "acme", OwnerID: 1,
		Status: model.StoreStatusPending, IsActive: true,
	}
	if err := repo.Create(ctx, store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	if err := repo.MarkProvisioned(ctx, store.ID, "storehub_store_"+
		strconv.FormatInt(store.ID, 10), time.Now()); err != nil {
		t.Fatalf("落库名失败: %v", err)
	}

	task.sweep(ctx)

	fresh, err := repo.GetByID(ctx, store.ID)
	if err != nil {
		t.Fatalf("查询店铺失败: %v", err)
	}
	if fresh.Status != model.StoreStatusActive {
		t.Fatalf("扫描后状态应为 active, 实际 %s", fresh.Status)
	}

	task.mu.Lock()
	_, tracked := task.attempts[store.ID]
	task.mu.Unlock()
	if tracked {
		t.Fatal("救回后不应再保留重试计数")
	}
}

// TestShouldRetryBounded 重试次数有上限，超限后不再处理
func TestShouldRetryBounded(t *testing.T) {
	task, _ := newSweepEnv(t)

	for i := 0; i < task.maxAttempts; i++ {
		if !task.shouldRetry(42) {
			t.Fatalf("第 %d 次重试不应被拒绝", i+1)
		}
	}
	if task.shouldRetry(42) {
		t.Fatal("超过重试上限后应拒绝")
	}

	task.clearAttempts(42)
	if !task.shouldRetry(42) {
		t.Fatal("清零后应允许重试")
	}
}
