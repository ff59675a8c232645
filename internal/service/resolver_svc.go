package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/encid"
)

// ==================== 解析错误 ====================

var (
	// ErrStoreNotFound 所有解析策略都没匹配到店铺（对外 404）
	ErrStoreNotFound = errors.New("store not found")
	// ErrStoreUnavailable 店铺存在但已停用/关店（对外 403，与 404 严格区分）
	ErrStoreUnavailable = errors.New("store unavailable")
)

// 保留子域名，不参与店铺解析
var reservedSubdomains = map[string]bool{
	"www":   true,
	"api":   true,
	"admin": true,
	"owner": true,
}

// ==================== 解析输入 ====================

// ResolveInput 从请求里抽出的解析要素
type ResolveInput struct {
	RouteParam      string // 路由参数 :store（数字ID / slug / 加密ID）
	HeaderStoreID   string // X-Store-ID（加密ID，兜底裸ID）
	HeaderStoreSlug string // X-Store-Slug（精确 slug）
	Host            string // 请求 Host
}

// ==================== 租户解析服务 ====================

// ResolverService 请求 → 店铺。优先级固定且全站唯一（路由参数 > 请求头 >
// 子域名 > 自定义域名），解析和库配置中间件共用这一份实现，不搞两套。
type ResolverService struct {
	storeRepo  repository.StoreRepository
	codec      *encid.Codec
	baseDomain string
}

// NewResolverService 创建租户解析服务
func NewResolverService(storeRepo repository.StoreRepository, codec *encid.Codec, baseDomain string) *ResolverService {
	return &ResolverService{
		storeRepo:  storeRepo,
		codec:      codec,
		baseDomain: baseDomain,
	}
}

// Resolve 按优先级解析店铺，首个命中即生效
// 未建库的店铺也能解析成功（开通引导期需要），由下游挡租户查询
func (s *ResolverService) Resolve(ctx context.Context, in ResolveInput) (*model.Store, error) {
	store, err := s.match(ctx, in)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	if !store.IsAvailable() {
		return nil, ErrStoreUnavailable
	}
	return store, nil
}

func (s *ResolverService) match(ctx context.Context, in ResolveInput) (*model.Store, error) {
	// 1. 路由参数：数字ID → slug → 加密ID
	if in.RouteParam != "" {
		if store, err := s.byAnyIdentifier(ctx, in.RouteParam); store != nil || err != nil {
			return store, err
		}
	}

	// 2. X-Store-ID：加密ID → 裸ID
	if in.HeaderStoreID != "" {
		if id, ok := s.codec.Decode(in.HeaderStoreID, encid.NSStore); ok {
			if store, err := s.byID(ctx, id); store != nil || err != nil {
				return store, err
			}
		}
		if id, err := strconv.ParseInt(in.HeaderStoreID, 10, 64); err == nil {
			if store, err := s.byID(ctx, id); store != nil || err != nil {
				return store, err
			}
		}
	}

	// 3. X-Store-Slug：精确匹配
	if in.HeaderStoreSlug != "" {
		if store, err := s.bySlug(ctx, in.HeaderStoreSlug); store != nil || err != nil {
			return store, err
		}
	}

	host := stripPort(in.Host)

	// 4. 平台主域名下的子域名
	if label, ok := s.subdomainLabel(host); ok {
		if store, err := s.bySubdomainThenSlug(ctx, label); store != nil || err != nil {
			return store, err
		}
	}

	// 5. 非主域名 host 的通用子域名启发：≥3 段且首段非保留词
	if !s.underBaseDomain(host) {
		labels := strings.Split(host, ".")
		if len(labels) >= 3 && !reservedSubdomains[labels[0]] {
			if store, err := s.bySubdomainThenSlug(ctx, labels[0]); store != nil || err != nil {
				return store, err
			}
		}
	}

	// 6. 自定义域名精确匹配
	if host != "" {
		if store, err := s.byCustomDomain(ctx, host); store != nil || err != nil {
			return store, err
		}
	}

	return nil, nil
}

// byAnyIdentifier 数字ID → slug → 加密ID，依次尝试
func (s *ResolverService) byAnyIdentifier(ctx context.Context, ident string) (*model.Store, error) {
	if id, err := strconv.ParseInt(ident, 10, 64); err == nil {
		if store, err := s.byID(ctx, id); store != nil || err != nil {
			return store, err
		}
	}
	if store, err := s.bySlug(ctx, ident); store != nil || err != nil {
		return store, err
	}
	if id, ok := s.codec.Decode(ident, encid.NSStore); ok {
		return s.byID(ctx, id)
	}
	return nil, nil
}

// subdomainLabel 从 host 剥掉平台主域名后缀，返回剩余标签
// 剩余部分含点（多级）或是保留词时不算子域名命中
func (s *ResolverService) subdomainLabel(host string) (string, bool) {
	suffix := "." + s.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	label := strings.TrimSuffix(host, suffix)
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	if reservedSubdomains[label] {
		return "", false
	}
	return label, true
}

func (s *ResolverService) underBaseDomain(host string) bool {
	return host == s.baseDomain || strings.HasSuffix(host, "."+s.baseDomain)
}

func (s *ResolverService) bySubdomainThenSlug(ctx context.Context, label string) (*model.Store, error) {
	if store, err := s.bySubdomain(ctx, label); store != nil || err != nil {
		return store, err
	}
	return s.bySlug(ctx, label)
}

// ==================== 查询封装（未命中不算错） ====================

func (s *ResolverService) byID(ctx context.Context, id int64) (*model.Store, error) {
	store, err := s.storeRepo.GetByID(ctx, id)
	return swallowNotFound(store, err)
}

func (s *ResolverService) bySlug(ctx context.Context, slug string) (*model.Store, error) {
	store, err := s.storeRepo.GetBySlug(ctx, slug)
	return swallowNotFound(store, err)
}

func (s *ResolverService) bySubdomain(ctx context.Context, subdomain string) (*model.Store, error) {
	store, err := s.storeRepo.GetBySubdomain(ctx, subdomain)
	return swallowNotFound(store, err)
}

func (s *ResolverService) byCustomDomain(ctx context.Context, domain string) (*model.Store, error) {
	store, err := s.storeRepo.GetByCustomDomain(ctx, domain)
	return swallowNotFound(store, err)
}

func swallowNotFound(store *model.Store, err error) (*model.Store, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return store, nil
}

func stripPort(host string) string {
	if idx := strings.LastIndex(host, ":"); idx > 0 && !strings.Contains(host[idx:], "]") {
		return host[:idx]
	}
	return host
}
