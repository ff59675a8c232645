package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 租户库模型 ====================
// 以下模型全部落在各店铺独立的租户库里，没有 store_id 列：
// 隔离靠连接指向哪个物理库实现，不靠行级过滤

// TenantModels 租户库建表/迁移清单，建库和 migrate 命令共用
func TenantModels() []interface{} {
	return []interface{}{
		&Product{}, &Category{}, &Customer{},
		&Order{}, &OrderItem{}, &Employee{},
		&Coupon{}, &Page{}, &Banner{},
		&MetaField{}, &Setting{}, &OperatingHour{},
		&NavigationMenu{}, &EmailTemplate{}, &TaxClass{},
	}
}

// Product 商品
type Product struct {
	BaseModel

	EncryptedID string  `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	CategoryID  *int64  `gorm:"index" json:"category_id"`
	Name        string  `gorm:"size:191;not null" json:"name"`
	Slug        string  `gorm:"size:191;uniqueIndex" json:"slug"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	IsVisible   bool    `gorm:"default:true" json:"is_visible"`
}

func (Product) TableName() string { return "products" }

// Category 商品分类
type Category struct {
	BaseModel

	EncryptedID string `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Name        string `gorm:"size:191;not null" json:"name"`
	Slug        string `gorm:"size:191;uniqueIndex" json:"slug"`
	Sort        int    `json:"sort"`
}

func (Category) TableName() string { return "categories" }

// Customer 顾客
type Customer struct {
	BaseModel

	EncryptedID string `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Name        string `gorm:"size:191" json:"name"`
	Email       string `gorm:"size:191;index" json:"email"`
	Phone       string `gorm:"size:32;index" json:"phone"`
}

func (Customer) TableName() string { return "customers" }

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCompleted = "completed"
	OrderStatusCanceled  = "canceled"
)

// Order 订单
type Order struct {
	BaseModel

	EncryptedID string  `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	OrderNo     string  `gorm:"size:64;uniqueIndex" json:"order_no"`
	CustomerID  *int64  `gorm:"index" json:"customer_id"`
	Status      string  `gorm:"size:32;default:pending;index" json:"status"`
	Total       float64 `json:"total"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单明细
type OrderItem struct {
	BaseModel

	OrderID   int64   `gorm:"index;not null" json:"order_id"`
	ProductID int64   `gorm:"index" json:"product_id"`
	Name      string  `gorm:"size:191" json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func (OrderItem) TableName() string { return "order_items" }

// Employee 店铺员工（令牌主体，行在租户库，令牌在中央库）
type Employee struct {
	BaseModel

	EncryptedID  string `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Name         string `gorm:"size:191" json:"name"`
	Email        string `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:191" json:"-"`
	Role         string `gorm:"size:32;default:staff" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
}

func (Employee) TableName() string { return "employees" }

// Coupon 优惠券
type Coupon struct {
	BaseModel

	EncryptedID string     `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Code        string     `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type        string     `gorm:"size:16;default:fixed" json:"type"` // fixed / percent
	Value       float64    `json:"value"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (Coupon) TableName() string { return "coupons" }

// Page 自定义页面
type Page struct {
	BaseModel

	EncryptedID string `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Title       string `gorm:"size:191" json:"title"`
	Slug        string `gorm:"size:191;uniqueIndex" json:"slug"`
	Content     string `gorm:"type:text" json:"content"`
	IsVisible   bool   `gorm:"default:true" json:"is_visible"`
}

func (Page) TableName() string { return "pages" }

// Banner 首页横幅
type Banner struct {
	BaseModel

	EncryptedID string `gorm:"size:64;uniqueIndex" json:"encrypted_id"`
	Title       string `gorm:"size:191" json:"title"`
	ImageURL    string `gorm:"size:512" json:"image_url"`
	LinkURL     string `gorm:"size:512" json:"link_url"`
	Sort        int    `json:"sort"`
}

func (Banner) TableName() string { return "banners" }

// MetaField 任意模型的扩展字段
type MetaField struct {
	BaseModel

	OwnerType string         `gorm:"size:32;index:idx_meta_owner" json:"owner_type"`
	OwnerID   int64          `gorm:"index:idx_meta_owner" json:"owner_id"`
	Key       string         `gorm:"size:191;index" json:"key"`
	Value     datatypes.JSON `json:"value"`
}

func (MetaField) TableName() string { return "meta_fields" }

// Setting 店铺设置（key 唯一，种子数据用 FirstOrCreate 保证幂等）
type Setting struct {
	BaseModel

	Key   string         `gorm:"size:191;uniqueIndex;not null" json:"key"`
	Value datatypes.JSON `json:"value"`
}

func (Setting) TableName() string { return "settings" }

// OperatingHour 营业时间，每周 7 行
type OperatingHour struct {
	BaseModel

	Weekday  int    `gorm:"uniqueIndex;not null" json:"weekday"` // 0=周日
	OpensAt  string `gorm:"size:8" json:"opens_at"`
	ClosesAt string `gorm:"size:8" json:"closes_at"`
	IsClosed bool   `gorm:"default:false" json:"is_closed"`
}

func (OperatingHour) TableName() string { return "operating_hours" }

// NavigationMenu 店铺导航菜单
type NavigationMenu struct {
	BaseModel

	Handle string         `gorm:"size:64;uniqueIndex;not null" json:"handle"` // main / footer
	Title  string         `gorm:"size:191" json:"title"`
	Items  datatypes.JSON `json:"items"`
}

func (NavigationMenu) TableName() string { return "navigation_menus" }

// EmailTemplate 邮件模板
type EmailTemplate struct {
	BaseModel

	Code    string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Subject string `gorm:"size:191" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`
}

func (EmailTemplate) TableName() string { return "email_templates" }

// TaxClass 税率分类
type TaxClass struct {
	BaseModel

	Name      string  `gorm:"size:191;uniqueIndex;not null" json:"name"`
	Rate      float64 `json:"rate"`
	IsDefault bool    `gorm:"default:false" json:"is_default"`
}

func (TaxClass) TableName() string { return "tax_classes" }
