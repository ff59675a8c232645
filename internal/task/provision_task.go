package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/internal/service"
)

// ==================== 建库重试任务 ====================

// ProvisionSweepTask 定期扫 pending 店铺补建租户库。
// 异步建库失败的店铺会停在 pending，这里做有界重试兜底；
// 任务自建租户作用域，不依赖任何请求上下文。
type ProvisionSweepTask struct {
	StoreRepo repository.StoreRepository
	Provision *service.ProvisionService
	Cron      *cron.Cron

	// 控制并发建库数量，迁移很重，不能一拥而上
	concurrencyLimit int
	maxAttempts      int

	mu       sync.Mutex
	attempts map[int64]int // storeID -> 已重试次数
}

// NewProvisionSweepTask 创建建库重试任务
func NewProvisionSweepTask(storeRepo repository.StoreRepository, provision *service.ProvisionService) *ProvisionSweepTask {
	return &ProvisionSweepTask{
		StoreRepo:        storeRepo,
		Provision:        provision,
		Cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 3,
		maxAttempts:      5,
		attempts:         make(map[int64]int),
	}
}

// Start 启动定时任务（每 10 分钟一轮）
func (t *ProvisionSweepTask) Start() {
	_, err := t.Cron.AddFunc("0 */10 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		t.sweep(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动建库重试任务: %v", err)
	}

	t.Cron.Start()
	log.Println("建库重试任务已启动 (每 10 分钟扫描 pending 店铺)")
}

// Stop 停止任务
func (t *ProvisionSweepTask) Stop() {
	t.Cron.Stop()
}

// sweep 扫一轮 pending 店铺
func (t *ProvisionSweepTask) sweep(ctx context.Context) {
	stores, err := t.StoreRepo.ListPending(ctx)
	if err != nil {
		log.Printf("[Cron] pending 店铺查询失败: %v", err)
		return
	}
	if len(stores) == 0 {
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[Cron] 开始补建 %d 个 pending 店铺，并发上限: %d", len(stores), t.concurrencyLimit)

	for _, store := range stores {
		select {
		case <-ctx.Done():
			log.Println("[Cron] 建库重试超时停止")
			return
		default:
		}

		if !t.shouldRetry(store.ID) {
			continue
		}

		sem <- struct{}{}
		wg.Add(1)

		currentStore := store

		go func(s model.Store) {
			defer wg.Done()
			defer func() { <-sem }()

			err := t.Provision.CreateTenantDatabase(ctx, &s, false)
			if err != nil {
				// 失败只记日志，店铺仍是 pending，下一轮继续
				log.Printf("[Cron] 店铺 %d (%s) 补建失败: %v", s.ID, s.Slug, err)
				return
			}
			t.clearAttempts(s.ID)
			log.Printf("[Cron] 店铺 %d (%s) 补建成功", s.ID, s.Slug)
		}(currentStore)
	}

	wg.Wait()
}

// shouldRetry 有界重试：超过上限的店铺不再自动处理，等人工介入
func (t *ProvisionSweepTask) shouldRetry(storeID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.attempts[storeID] >= t.maxAttempts {
		return false
	}
	t.attempts[storeID]++
	return true
}

func (t *ProvisionSweepTask) clearAttempts(storeID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, storeID)
}
