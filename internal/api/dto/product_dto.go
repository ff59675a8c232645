package dto

// ProductReq 商品创建/更新请求
type ProductReq struct {
	CategoryID  *int64  `json:"category_id"`
	Name        string  `json:"name" binding:"required,max=191"`
	Slug        string  `json:"slug" binding:"required,max=191"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"gte=0"`
	Stock       int     `json:"stock" binding:"gte=0"`
	IsVisible   *bool   `json:"is_visible"`
}

// ProductListReq 商品列表查询
type ProductListReq struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// ProductListResp 商品列表响应
type ProductListResp struct {
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}
