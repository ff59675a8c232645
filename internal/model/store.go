package model

import "time"

// ==================== 店铺状态 ====================

const (
	StoreStatusPending   = "pending"   // 建库中或建库失败，可重试
	StoreStatusActive    = "active"    // 正常营业
	StoreStatusSuspended = "suspended" // 试用到期/欠费停用
	StoreStatusClosed    = "closed"    // 已关店
)

// ==================== 中央库：店铺 ====================

// Store 店铺（landlord 库核心表）
// DatabaseName 非空当且仅当租户库已建成；建库成功前不落该字段，
// 避免进程中途崩溃留下悬空引用
type Store struct {
	BaseModel

	// 对外标识
	EncryptedID string `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Name        string `gorm:"size:191;not null" json:"name"`
	Slug        string `gorm:"size:191;uniqueIndex;not null" json:"slug"`

	// 域名寻址：Slug 隐式子域名永远可用；Subdomain 允许单独改
	Subdomain    string `gorm:"size:191;index" json:"subdomain"`
	CustomDomain string `gorm:"size:191;index" json:"custom_domain"`

	// 归属
	OwnerID int64 `gorm:"index;not null" json:"owner_id"`

	// 租户库：未建库为 NULL（唯一索引下空串会互相撞，必须用指针）
	DatabaseName      *string    `gorm:"size:191;uniqueIndex" json:"-"`
	DatabaseCreatedAt *time.Time `json:"database_created_at"`

	// 生命周期
	Status   string `gorm:"size:32;default:pending;index" json:"status"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// 试用期
	TrialUsed   bool       `gorm:"default:false" json:"trial_used"`
	TrialEndsAt *time.Time `json:"trial_ends_at"`

	Domains []Domain `gorm:"foreignKey:StoreID" json:"domains,omitempty"`
}

func (Store) TableName() string { return "stores" }

// IsProvisioned 租户库是否已建成
func (s *Store) IsProvisioned() bool {
	return s.DatabaseName != nil && *s.DatabaseName != ""
}

// DBName 租户库名，未建库返回空串
func (s *Store) DBName() string {
	if s.DatabaseName == nil {
		return ""
	}
	return *s.DatabaseName
}

// IsAvailable 店铺是否可对外服务
func (s *Store) IsAvailable() bool {
	if !s.IsActive {
		return false
	}
	return s.Status != StoreStatusSuspended && s.Status != StoreStatusClosed
}

// ==================== 中央库：域名 ====================

const (
	DomainTypeSubdomain = "subdomain"
	DomainTypeCustom    = "custom"

	DomainStatusPending   = "pending"
	DomainStatusVerifying = "verifying"
	DomainStatusActive    = "active"
	DomainStatusFailed    = "failed"
)

// Domain 店铺绑定的域名
// slug 隐式子域名不占行，由 slug + 平台主域名即时拼出，不可删除
type Domain struct {
	BaseModel

	StoreID int64  `gorm:"index;not null" json:"store_id"`
	Domain  string `gorm:"size:191;uniqueIndex;not null" json:"domain"`
	Type    string `gorm:"size:16;default:subdomain" json:"type"`
	Status  string `gorm:"size:16;default:pending" json:"status"`

	// 每店铺至多一个非子域名类型的主域名
	IsPrimary bool `gorm:"default:false" json:"is_primary"`

	VerificationToken string     `gorm:"size:64" json:"-"`
	VerifiedAt        *time.Time `json:"verified_at"`
}

func (Domain) TableName() string { return "domains" }

// ==================== 中央库：店主 & 订阅 ====================

// Owner 店主（中央库用户）
type Owner struct {
	BaseModel

	Name         string `gorm:"size:191" json:"name"`
	Email        string `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:191;not null" json:"-"`
}

func (Owner) TableName() string { return "owners" }

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription 店铺订阅（试用到期判定依赖它）
type Subscription struct {
	BaseModel

	StoreID            int64      `gorm:"index;not null" json:"store_id"`
	PlanCode           string     `gorm:"size:64" json:"plan_code"`
	Status             string     `gorm:"size:32;default:active;index" json:"status"`
	CurrentPeriodEndAt *time.Time `json:"current_period_end_at"`
}

func (Subscription) TableName() string { return "subscriptions" }
