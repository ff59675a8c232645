package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 中央库：访问令牌 ====================

// 令牌归属的主体类型（显式枚举，不做运行时反射判断）
const (
	TokenableOwner    = "owner"    // 主体在中央库
	TokenableEmployee = "employee" // 主体在租户库，必须带 StoreID
)

// PersonalAccessToken 不透明 Bearer 令牌（中央库统一存放）
// Employee 令牌额外记录 StoreID：认证时要先据此切到对应租户库，
// 才能加载到令牌主体本身
type PersonalAccessToken struct {
	BaseModel

	TokenableType string `gorm:"size:32;index;not null" json:"tokenable_type"`
	TokenableID   int64  `gorm:"index;not null" json:"tokenable_id"`

	// 仅 Employee 令牌非空
	StoreID *int64 `gorm:"index" json:"store_id"`

	Name      string         `gorm:"size:191" json:"name"`
	TokenHash string         `gorm:"size:64;uniqueIndex;not null" json:"-"`
	Abilities datatypes.JSON `json:"abilities"`

	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (PersonalAccessToken) TableName() string { return "personal_access_tokens" }

// IsExpired 是否已过期
func (t *PersonalAccessToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
