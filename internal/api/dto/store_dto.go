package dto

import "time"

// ==================== 店铺 ====================

// CreateStoreReq 开店请求
type CreateStoreReq struct {
	Name string `json:"name" binding:"required,min=2,max=191"`
	Slug string `json:"slug" binding:"required,min=2,max=64,alphanum"`
}

// UpdateStoreReq 更新店铺请求
type UpdateStoreReq struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

// StoreResp 店铺响应
type StoreResp struct {
	ID                int64      `json:"id"`
	EncryptedID       string     `json:"encrypted_id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Subdomain         string     `json:"subdomain"`
	CustomDomain      string     `json:"custom_domain,omitempty"`
	ImplicitDomain    string     `json:"implicit_domain"`
	Status            string     `json:"status"`
	IsActive          bool       `json:"is_active"`
	Provisioned       bool       `json:"provisioned"`
	DatabaseCreatedAt *time.Time `json:"database_created_at,omitempty"`
	TrialEndsAt       *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ==================== 域名 ====================

// AddDomainReq 绑定域名请求
type AddDomainReq struct {
	Domain    string `json:"domain" binding:"required,fqdn"`
	IsPrimary bool   `json:"is_primary"`
}

// DomainResp 域名响应
type DomainResp struct {
	ID                int64      `json:"id"`
	Domain            string     `json:"domain"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	IsPrimary         bool       `json:"is_primary"`
	VerificationToken string     `json:"verification_token,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
}

// ==================== 员工令牌 ====================

// IssueTokenReq 签发员工令牌请求
type IssueTokenReq struct {
	EmployeeID int64  `json:"employee_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

// IssueTokenResp 签发员工令牌响应（明文只出现这一次）
type IssueTokenResp struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at"`
}
