package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/encid"
)

var (
	// ErrSlugTaken slug 已被占用
	ErrSlugTaken = errors.New("store slug already taken")
	// ErrNotStoreOwner 非店主操作他人店铺
	ErrNotStoreOwner = errors.New("not the store owner")
	// ErrDomainNotDeletable 隐式子域名不可删除
	ErrDomainNotDeletable = errors.New("implicit subdomain cannot be deleted")
)

// 试用期时长
const trialDuration = 14 * 24 * time.Hour

// ==================== 店铺服务 ====================

// StoreService 店铺 CRUD 与域名管理（中央库侧）
type StoreService struct {
	storeRepo  repository.StoreRepository
	domainRepo repository.DomainRepository
	lifecycle  *LifecycleService
	codec      *encid.Codec
	baseDomain string
	httpClient *resty.Client
}

// NewStoreService 创建店铺服务
func NewStoreService(
	storeRepo repository.StoreRepository,
	domainRepo repository.DomainRepository,
	lifecycle *LifecycleService,
	codec *encid.Codec,
	baseDomain string,
) *StoreService {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(2)

	return &StoreService{
		storeRepo:  storeRepo,
		domainRepo: domainRepo,
		lifecycle:  lifecycle,
		codec:      codec,
		baseDomain: baseDomain,
		httpClient: client,
	}
}

// CreateStore 开店：落店铺行 → 同步收尾（加密ID/资产目录）→ 异步建库
func (s *StoreService) CreateStore(ctx context.Context, ownerID int64, name, slug string) (*model.Store, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	if existing, err := s.storeRepo.GetBySlug(ctx, slug); err == nil && existing != nil {
		return nil, ErrSlugTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	trialEnd := time.Now().Add(trialDuration)
	store := &model.Store{
		Name:        name,
		Slug:        slug,
		Subdomain:   slug,
		OwnerID:     ownerID,
		Status:      model.StoreStatusPending,
		IsActive:    true,
		TrialUsed:   true,
		TrialEndsAt: &trialEnd,
	}

	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, err
	}

	if err := s.lifecycle.StoreCreated(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// GetOwnedStore 取店铺并校验归属
func (s *StoreService) GetOwnedStore(ctx context.Context, ownerID, storeID int64) (*model.Store, error) {
	store, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.OwnerID != ownerID {
		return nil, ErrNotStoreOwner
	}
	return store, nil
}

// GetOwnedStoreByIdent 按任意标识取店铺并校验归属
// 店主侧路由参数与租户解析器同序：数字ID → slug → 加密ID
func (s *StoreService) GetOwnedStoreByIdent(ctx context.Context, ownerID int64, ident string) (*model.Store, error) {
	if id, err := strconv.ParseInt(ident, 10, 64); err == nil {
		store, err := s.storeRepo.GetByID(ctx, id)
		if err == nil {
			if store.OwnerID != ownerID {
				return nil, ErrNotStoreOwner
			}
			return store, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if store, err := s.storeRepo.GetBySlug(ctx, ident); err == nil {
		if store.OwnerID != ownerID {
			return nil, ErrNotStoreOwner
		}
		return store, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if id, ok := s.codec.Decode(ident, encid.NSStore); ok {
		return s.GetOwnedStore(ctx, ownerID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

// ListOwnedStores 店主名下全部店铺
func (s *StoreService) ListOwnedStores(ctx context.Context, ownerID int64) ([]model.Store, error) {
	return s.storeRepo.ListByOwnerID(ctx, ownerID)
}

// UpdateStore 更新店铺；店名变更时把新名字同步进租户库 settings
func (s *StoreService) UpdateStore(ctx context.Context, ownerID, storeID int64, name, subdomain string) (*model.Store, error) {
	store, err := s.GetOwnedStore(ctx, ownerID, storeID)
	if err != nil {
		return nil, err
	}

	renamed := name != "" && name != store.Name
	if name != "" {
		store.Name = name
	}
	if subdomain != "" {
		store.Subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	}

	if err := s.storeRepo.Update(ctx, store); err != nil {
		return nil, err
	}

	if renamed {
		s.lifecycle.StoreRenamed(ctx, store)
	}
	return store, nil
}

// DeleteStore 删店
// force=false 软删（租户库保留，可恢复）；force=true 连库带资产一起清
func (s *StoreService) DeleteStore(ctx context.Context, ownerID, storeID int64, force bool) error {
	store, err := s.GetOwnedStore(ctx, ownerID, storeID)
	if err != nil {
		return err
	}

	if !force {
		return s.storeRepo.Delete(ctx, storeID)
	}

	// 清理失败不阻塞行删除，详见 LifecycleService.StoreForceDeleted
	s.lifecycle.StoreForceDeleted(ctx, store)
	return s.storeRepo.ForceDelete(ctx, storeID)
}

// ==================== 域名管理 ====================

// ImplicitSubdomain slug 隐式子域名，不落 Domain 行，永远可用
func (s *StoreService) ImplicitSubdomain(store *model.Store) string {
	return store.Slug + "." + s.baseDomain
}

// AddDomain 绑定自定义域名，生成校验 token
// isPrimary 时先取消该店现有主域名（每店至多一个非子域名主域名）
func (s *StoreService) AddDomain(ctx context.Context, store *model.Store, domainName string, isPrimary bool) (*model.Domain, error) {
	domainName = strings.ToLower(strings.TrimSpace(domainName))

	if isPrimary {
		if err := s.domainRepo.ClearPrimary(ctx, store.ID); err != nil {
			return nil, err
		}
	}

	domain := &model.Domain{
		StoreID:           store.ID,
		Domain:            domainName,
		Type:              model.DomainTypeCustom,
		Status:            model.DomainStatusPending,
		IsPrimary:         isPrimary,
		VerificationToken: uuid.NewString(),
	}
	if err := s.domainRepo.Create(ctx, domain); err != nil {
		return nil, err
	}
	return domain, nil
}

// VerifyDomain 回源校验：拉取域名下的校验文件，内容必须等于 token
// 校验通过的主域名写回 store.custom_domain，供解析器精确匹配
func (s *StoreService) VerifyDomain(ctx context.Context, store *model.Store, domainID int64) (*model.Domain, error) {
	domain, err := s.domainRepo.GetByID(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if domain.StoreID != store.ID {
		return nil, ErrNotStoreOwner
	}

	domain.Status = model.DomainStatusVerifying
	if err := s.domainRepo.Update(ctx, domain); err != nil {
		return nil, err
	}

	verifyURL := fmt.Sprintf("http://%s/.well-known/storehub-verification", domain.Domain)
	resp, err := s.httpClient.R().SetContext(ctx).Get(verifyURL)
	if err != nil || resp == nil || resp.StatusCode() != 200 || strings.TrimSpace(resp.String()) != domain.VerificationToken {
		// 域名不合法或不可达时 resp 可能是 nil，取状态码前必须判空
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		log.Printf("[Domain] 店铺 %d 域名 %s 校验失败: err=%v status=%d",
			store.ID, domain.Domain, err, status)
		if markErr := s.domainRepo.MarkFailed(ctx, domain.ID); markErr != nil {
			return nil, markErr
		}
		domain.Status = model.DomainStatusFailed
		return domain, nil
	}

	now := time.Now()
	if err := s.domainRepo.MarkVerified(ctx, domain.ID, now); err != nil {
		return nil, err
	}
	domain.Status = model.DomainStatusActive
	domain.VerifiedAt = &now

	if domain.IsPrimary {
		if err := s.storeRepo.UpdateFields(ctx, store.ID, map[string]interface{}{
			"custom_domain": domain.Domain,
		}); err != nil {
			return nil, err
		}
		store.CustomDomain = domain.Domain
	}
	return domain, nil
}

// ListDomains 店铺全部域名行
func (s *StoreService) ListDomains(ctx context.Context, store *model.Store) ([]model.Domain, error) {
	return s.domainRepo.ListByStoreID(ctx, store.ID)
}

// DeleteDomain 删除自定义域名行；主域名被删时清掉 store.custom_domain
func (s *StoreService) DeleteDomain(ctx context.Context, store *model.Store, domainID int64) error {
	domain, err := s.domainRepo.GetByID(ctx, domainID)
	if err != nil {
		return err
	}
	if domain.StoreID != store.ID {
		return ErrNotStoreOwner
	}
	if domain.Type == model.DomainTypeSubdomain {
		return ErrDomainNotDeletable
	}

	if err := s.domainRepo.Delete(ctx, domainID); err != nil {
		return err
	}

	if domain.IsPrimary && store.CustomDomain == domain.Domain {
		return s.storeRepo.UpdateFields(ctx, store.ID, map[string]interface{}{
			"custom_domain": "",
		})
	}
	return nil
}
