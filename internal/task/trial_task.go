package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
)

// ==================== 试用到期任务 ====================

// TrialTask 每日扫描试用到期店铺：
// 试用已用完、到期时间已过、状态还是 active 且没有有效订阅的，
// 统一置为 suspended + is_active=false。只读写中央库。
type TrialTask struct {
	StoreRepo repository.StoreRepository
	Cron      *cron.Cron
}

// NewTrialTask 创建试用到期任务
func NewTrialTask(storeRepo repository.StoreRepository) *TrialTask {
	return &TrialTask{
		StoreRepo: storeRepo,
		Cron:      cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务（每天凌晨 3 点）
func (t *TrialTask) Start() {
	_, err := t.Cron.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.SuspendExpired(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动试用到期定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("试用到期任务已启动 (每天 03:00 扫描)")
}

// Stop 停止任务
func (t *TrialTask) Stop() {
	t.Cron.Stop()
}

// SuspendExpired 执行一轮扫描，返回本轮停用的店铺数
func (t *TrialTask) SuspendExpired(ctx context.Context) int {
	stores, err := t.StoreRepo.ListExpiredTrials(ctx, time.Now())
	if err != nil {
		log.Printf("[Cron] 试用到期店铺查询失败: %v", err)
		return 0
	}

	suspended := 0
	for i := range stores {
		store := &stores[i]

		// 有有效订阅的不动
		active, err := t.StoreRepo.HasActiveSubscription(ctx, store.ID)
		if err != nil {
			log.Printf("[Cron] 店铺 %d 订阅查询失败: %v", store.ID, err)
			continue
		}
		if active {
			continue
		}

		err = t.StoreRepo.UpdateFields(ctx, store.ID, map[string]interface{}{
			"status":    model.StoreStatusSuspended,
			"is_active": false,
		})
		if err != nil {
			log.Printf("[Cron] 店铺 %d (%s) 停用失败: %v", store.ID, store.Slug, err)
			continue
		}
		suspended++
		log.Printf("[Cron] 店铺 %d (%s) 试用到期已停用", store.ID, store.Slug)
	}

	if suspended > 0 {
		log.Printf("[Cron] 本轮试用到期扫描完成，停用 %d 个店铺", suspended)
	}
	return suspended
}
