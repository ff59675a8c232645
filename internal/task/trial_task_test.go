package task

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
)

func newCentralDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开中央库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Store{}, &model.Subscription{}); err != nil {
		t.Fatalf("中央库迁移失败: %v", err)
	}
	return db
}

func trialStore(t *testing.T, repo repository.StoreRepository, slug string, endsAt time.Time) *model.Store {
	t.Helper()
	store := &model.Store{
		Name: slug, Slug: slug, OwnerID: 1,
		Status: model.StoreStatusActive, IsActive: true,
		TrialUsed: true, TrialEndsAt: &endsAt,
	}
	if err := repo.Create(context.Background(), store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	return store
}

// TestSuspendExpired 试用到期且无订阅的店铺应被停用
func TestSuspendExpired(t *testing.T) {
	db := newCentralDB(t)
	repo := repository.NewStoreRepository(db)
	ctx := context.Background()

	expired := trialStore(t, repo, "expired", time.Now().Add(-24*time.Hour))
	stillOK := trialStore(t, repo, "still-ok", time.Now().Add(24*time.Hour))

	task := NewTrialTask(repo)
	if got := task.SuspendExpired(ctx); got != 1 {
		t.Fatalf("本轮停用数期望 1, 实际 %d", got)
	}

	fresh, err := repo.GetByID(ctx, expired.ID)
	if err != nil {
		t.Fatalf("查询店铺失败: %v", err)
	}
	if fresh.Status != model.StoreStatusSuspended || fresh.IsActive {
		t.Fatalf("到期店铺应停用: status=%s is_active=%v", fresh.Status, fresh.IsActive)
	}

	fresh, err = repo.GetByID(ctx, stillOK.ID)
	if err != nil {
		t.Fatalf("查询店铺失败: %v", err)
	}
	if fresh.Status != model.StoreStatusActive || !fresh.IsActive {
		t.Fatalf("未到期店铺不应被动: status=%s is_active=%v", fresh.Status, fresh.IsActive)
	}
}

// TestSuspendSkipsSubscribed 有有效订阅的到期店铺不停用
func TestSuspendSkipsSubscribed(t *testing.T) {
	db := newCentralDB(t)
	repo := repository.NewStoreRepository(db)
	ctx := context.Background()

	subscribed := trialStore(t, repo, "subscribed", time.Now().Add(-24*time.Hour))
	if err := db.Create(&model.Subscription{
		StoreID: subscribed.ID, PlanCode: "basic",
		Status: model.SubscriptionStatusActive,
	}).Error; err != nil {
		t.Fatalf("创建订阅失败: %v", err)
	}

	task := NewTrialTask(repo)
	if got := task.SuspendExpired(ctx); got != 0 {
		t.Fatalf("有订阅的店铺不应停用, 本轮停用数 %d", got)
	}

	fresh, err := repo.GetByID(ctx, subscribed.ID)
	if err != nil {
		t.Fatalf("查询店铺失败: %v", err)
	}
	if fresh.Status != model.StoreStatusActive {
		t.Fatalf("有订阅店铺状态应保持 active, 实际 %s", fresh.Status)
	}
}

// TestSuspendExpiredCancelledSubscription 订阅已取消的到期店铺照常停用
func TestSuspendExpiredCancelledSubscription(t *testing.T) {
	db := newCentralDB(t)
	repo := repository.NewStoreRepository(db)
	ctx := context.Background()

	store := trialStore(t, repo, "cancelled", time.Now().Add(-time.Hour))
	if err := db.Create(&model.Subscription{
		StoreID: store.ID, PlanCode: "basic",
		Status: model.SubscriptionStatusCanceled,
	}).Error; err != nil {
		t.Fatalf("创建订阅失败: %v", err)
	}

	task := NewTrialTask(repo)
	if got := task.SuspendExpired(ctx); got != 1 {
		t.Fatalf("取消订阅的到期店铺应停用, 本轮停用数 %d", got)
	}
}
