package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/database"
	"storehub_v1/pkg/encid"
)

// ==================== 生命周期编排器 ====================

// LifecycleService 店铺创建/删除/改名的后续动作，按显式流水线编排：
// 快的同步做（加密ID、资产目录），慢的异步做（建库），
// 删除走尽力而为清理，失败只记日志不回滚店铺行删除。
type LifecycleService struct {
	storeRepo   repository.StoreRepository
	tokenRepo   repository.TokenRepository
	settingRepo repository.SettingRepository
	provision   *ProvisionService
	manager     *database.TenantManager
	codec       *encid.Codec

	assetRoot        string
	autoProvision    bool
	provisionTimeout time.Duration
}

// NewLifecycleService 创建生命周期编排器
func NewLifecycleService(
	storeRepo repository.StoreRepository,
	tokenRepo repository.TokenRepository,
	settingRepo repository.SettingRepository,
	provision *ProvisionService,
	manager *database.TenantManager,
	codec *encid.Codec,
	assetRoot string,
	autoProvision bool,
) *LifecycleService {
	return &LifecycleService{
		storeRepo:        storeRepo,
		tokenRepo:        tokenRepo,
		settingRepo:      settingRepo,
		provision:        provision,
		manager:          manager,
		codec:            codec,
		assetRoot:        assetRoot,
		autoProvision:    autoProvision,
		provisionTimeout: 10 * time.Minute,
	}
}

// assetDir 店铺资产目录（按ID命名，slug 可变不可靠）
func (s *LifecycleService) assetDir(store *model.Store) string {
	return filepath.Join(s.assetRoot, strconv.FormatInt(store.ID, 10))
}

// StoreCreated 店铺行落库后的同步收尾：
// 加密ID一次性生成并固化（之后永不重算），资产目录就位。
// 这些都很快，必须在响应返回前完成。
func (s *LifecycleService) StoreCreated(ctx context.Context, store *model.Store) error {
	token, err := s.codec.Encode(store.ID, encid.NSStore)
	if err != nil {
		return fmt.Errorf("生成店铺加密ID失败: %w", err)
	}
	if err := s.storeRepo.UpdateFields(ctx, store.ID, map[string]interface{}{
		"encrypted_id": token,
	}); err != nil {
		return err
	}
	store.EncryptedID = token

	if err := os.MkdirAll(s.assetDir(store), 0o755); err != nil {
		return fmt.Errorf("创建店铺资产目录失败: %w", err)
	}

	if s.autoProvision {
		s.ProvisionInBackground(store)
	}
	return nil
}

// ProvisionInBackground 异步建库。建库含整套迁移，耗时不可控，
// 不能阻塞触发它的请求；失败店铺留在 pending，由重试任务兜底。
func (s *LifecycleService) ProvisionInBackground(store *model.Store) {
	snapshot := *store
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.provisionTimeout)
		defer cancel()

		if err := s.provision.CreateTenantDatabase(ctx, &snapshot, false); err != nil {
			log.Printf("[Lifecycle] 店铺 %d (%s) 异步建库失败（留在 pending 等待重试）: %v",
				snapshot.ID, snapshot.Slug, err)
		}
	}()
}

// StoreForceDeleted 强删收尾：删租户库 + 清资产 + 回收员工令牌。
// 每步失败只记日志（带 store id / slug / 库名，方便人工补救），
// 不阻止店铺行本身的删除——这是尽力而为的对账，不是事务保证。
func (s *LifecycleService) StoreForceDeleted(ctx context.Context, store *model.Store) {
	if err := s.provision.DeleteTenantDatabase(ctx, store); err != nil {
		log.Printf("[Lifecycle] 店铺 %d (%s) 删租户库失败 db=%s: %v",
			store.ID, store.Slug, store.DBName(), err)
	}

	if err := os.RemoveAll(s.assetDir(store)); err != nil {
		log.Printf("[Lifecycle] 店铺 %d (%s) 清理资产目录失败: %v", store.ID, store.Slug, err)
	}

	if err := s.tokenRepo.DeleteByStoreID(ctx, store.ID); err != nil {
		log.Printf("[Lifecycle] 店铺 %d (%s) 回收员工令牌失败: %v", store.ID, store.Slug, err)
	}
}

// StoreRenamed 店名变更同步进租户库 settings 表
// 没建库就没什么可同步；失败非致命，只记日志
func (s *LifecycleService) StoreRenamed(ctx context.Context, store *model.Store) {
	if !store.IsProvisioned() {
		return
	}

	err := s.manager.WithTenant(ctx, store, func(tx *gorm.DB) error {
		value := datatypes.JSON([]byte(strconv.Quote(store.Name)))
		return s.settingRepo.Set(ctx, tx, "store_name", value)
	})
	if err != nil {
		log.Printf("[Lifecycle] 店铺 %d (%s) 店名同步进租户库失败: %v", store.ID, store.Slug, err)
	}
}
