package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storehub_v1/internal/api/dto"
	"storehub_v1/internal/middleware"
	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/encid"
)

// ProductController 租户侧商品接口
// 所有查询都打中间件挂上来的租户句柄，控制器自身不持有任何连接
type ProductController struct {
	productRepo repository.ProductRepository
	codec       *encid.Codec
}

func NewProductController(productRepo repository.ProductRepository, codec *encid.Codec) *ProductController {
	return &ProductController{productRepo: productRepo, codec: codec}
}

// List 商品列表
// @Summary 商品列表
// @Tags Product (商品)
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.ProductListResp "商品列表"
// @Router /api/t/products [get]
func (c *ProductController) List(ctx *gin.Context) {
	db, ok := middleware.RequireTenantDB(ctx)
	if !ok {
		return
	}

	var req dto.ProductListReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	products, total, err := c.productRepo.List(ctx.Request.Context(), db, req.Page, req.PageSize)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.ProductListResp{Total: total, Items: products})
}

// Get 商品详情，支持数字ID和加密ID
// @Summary 商品详情
// @Tags Product (商品)
// @Produce json
// @Param id path string true "商品ID（数字或加密）"
// @Success 200 {object} model.Product "商品"
// @Router /api/t/products/{id} [get]
func (c *ProductController) Get(ctx *gin.Context) {
	db, ok := middleware.RequireTenantDB(ctx)
	if !ok {
		return
	}

	ident := ctx.Param("id")
	id, err := strconv.ParseInt(ident, 10, 64)
	if err != nil {
		decoded, ok := c.codec.Decode(ident, encid.NSProduct)
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
			return
		}
		id = decoded
	}

	product, err := c.productRepo.GetByID(ctx.Request.Context(), db, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, product)
}

// Create 新建商品（需要员工令牌）
// @Summary 新建商品
// @Tags Product (商品)
// @Accept json
// @Produce json
// @Param body body dto.ProductReq true "商品"
// @Success 200 {object} model.Product "商品"
// @Router /api/t/products [post]
func (c *ProductController) Create(ctx *gin.Context) {
	db, ok := middleware.RequireTenantDB(ctx)
	if !ok {
		return
	}

	var req dto.ProductReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	product := &model.Product{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		IsVisible:   req.IsVisible == nil || *req.IsVisible,
	}
	if err := c.productRepo.Create(ctx.Request.Context(), db, product); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 加密 ID 创建时一次性生成并固化
	if token, err := c.codec.Encode(product.ID, encid.NSProduct); err == nil {
		product.EncryptedID = token
		if err := c.productRepo.Update(ctx.Request.Context(), db, product); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	ctx.JSON(http.StatusOK, product)
}

// Update 更新商品（需要员工令牌）
// @Summary 更新商品
// @Tags Product (商品)
// @Accept json
// @Produce json
// @Param id path int true "商品ID"
// @Param body body dto.ProductReq true "商品"
// @Success 200 {object} model.Product "商品"
// @Router /api/t/products/{id} [put]
func (c *ProductController) Update(ctx *gin.Context) {
	db, ok := middleware.RequireTenantDB(ctx)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的商品ID"})
		return
	}

	product, err := c.productRepo.GetByID(ctx.Request.Context(), db, id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
		return
	}

	var req dto.ProductReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	product.CategoryID = req.CategoryID
	product.Name = req.Name
	product.Slug = req.Slug
	product.Description = req.Description
	product.Price = req.Price
	product.Stock = req.Stock
	if req.IsVisible != nil {
		product.IsVisible = *req.IsVisible
	}

	if err := c.productRepo.Update(ctx.Request.Context(), db, product); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, product)
}

// Delete 删除商品（需要员工令牌）
// @Summary 删除商品
// @Tags Product (商品)
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} map[string]string "结果"
// @Router /api/t/products/{id} [delete]
func (c *ProductController) Delete(ctx *gin.Context) {
	db, ok := middleware.RequireTenantDB(ctx)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的商品ID"})
		return
	}

	if err := c.productRepo.Delete(ctx.Request.Context(), db, id); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
