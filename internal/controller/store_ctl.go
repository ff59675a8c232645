package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storehub_v1/internal/api/dto"
	"storehub_v1/internal/middleware"
	"storehub_v1/internal/model"
	"storehub_v1/internal/service"
)

type StoreController struct {
	storeSvc *service.StoreService
	authSvc  *service.AuthService
}

func NewStoreController(storeSvc *service.StoreService, authSvc *service.AuthService) *StoreController {
	return &StoreController{storeSvc: storeSvc, authSvc: authSvc}
}

func (c *StoreController) toResp(store *model.Store) dto.StoreResp {
	return dto.StoreResp{
		ID:                store.ID,
		EncryptedID:       store.EncryptedID,
		Name:              store.Name,
		Slug:              store.Slug,
		Subdomain:         store.Subdomain,
		CustomDomain:      store.CustomDomain,
		ImplicitDomain:    c.storeSvc.ImplicitSubdomain(store),
		Status:            store.Status,
		IsActive:          store.IsActive,
		Provisioned:       store.IsProvisioned(),
		DatabaseCreatedAt: store.DatabaseCreatedAt,
		TrialEndsAt:       store.TrialEndsAt,
		CreatedAt:         store.CreatedAt,
	}
}

// Create 开店
// @Summary 开店
// @Description 创建店铺行并触发异步建库，响应里 status=pending 表示建库进行中
// @Tags Store (店铺管理)
// @Accept json
// @Produce json
// @Param body body dto.CreateStoreReq true "店铺信息"
// @Success 200 {object} dto.StoreResp "店铺"
// @Failure 409 {object} map[string]string "slug 已占用"
// @Router /api/stores [post]
func (c *StoreController) Create(ctx *gin.Context) {
	var req dto.CreateStoreReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	ownerID := middleware.GetOwnerID(ctx)
	store, err := c.storeSvc.CreateStore(ctx.Request.Context(), ownerID, req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, service.ErrSlugTaken) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "slug 已被占用"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, c.toResp(store))
}

// List 店主名下店铺列表
// @Summary 店铺列表
// @Tags Store (店铺管理)
// @Produce json
// @Success 200 {array} dto.StoreResp "店铺列表"
// @Router /api/stores [get]
func (c *StoreController) List(ctx *gin.Context) {
	ownerID := middleware.GetOwnerID(ctx)
	stores, err := c.storeSvc.ListOwnedStores(ctx.Request.Context(), ownerID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.StoreResp, 0, len(stores))
	for i := range stores {
		resp = append(resp, c.toResp(&stores[i]))
	}
	ctx.JSON(http.StatusOK, resp)
}

// ownedStore 解析路径里的店铺并校验归属
// 标识与租户解析器同样宽容：数字ID、slug、加密ID 都接受
func (c *StoreController) ownedStore(ctx *gin.Context) (*model.Store, bool) {
	store, err := c.storeSvc.GetOwnedStoreByIdent(ctx.Request.Context(), middleware.GetOwnerID(ctx), ctx.Param("store"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "店铺不存在"})
		case errors.Is(err, service.ErrNotStoreOwner):
			ctx.JSON(http.StatusForbidden, gin.H{"error": "无权操作该店铺"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return store, true
}

// Get 店铺详情
// @Summary 店铺详情
// @Tags Store (店铺管理)
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Success 200 {object} dto.StoreResp "店铺"
// @Router /api/stores/{store} [get]
func (c *StoreController) Get(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, c.toResp(store))
}

// Update 更新店铺
// @Summary 更新店铺
// @Description 店名变更会同步进租户库 settings
// @Tags Store (店铺管理)
// @Accept json
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Param body body dto.UpdateStoreReq true "更新内容"
// @Success 200 {object} dto.StoreResp "店铺"
// @Router /api/stores/{store} [put]
func (c *StoreController) Update(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	var req dto.UpdateStoreReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	updated, err := c.storeSvc.UpdateStore(ctx.Request.Context(),
		middleware.GetOwnerID(ctx), store.ID, req.Name, req.Subdomain)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, c.toResp(updated))
}

// Delete 删店
// @Summary 删店
// @Description 默认软删（租户库保留）；force=1 时连租户库和资产一起清
// @Tags Store (店铺管理)
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Param force query bool false "是否强删"
// @Success 200 {object} map[string]string "结果"
// @Router /api/stores/{store} [delete]
func (c *StoreController) Delete(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	force := ctx.Query("force") == "1" || ctx.Query("force") == "true"
	if err := c.storeSvc.DeleteStore(ctx.Request.Context(),
		middleware.GetOwnerID(ctx), store.ID, force); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// ==================== 域名 ====================

func toDomainResp(d *model.Domain) dto.DomainResp {
	return dto.DomainResp{
		ID:                d.ID,
		Domain:            d.Domain,
		Type:              d.Type,
		Status:            d.Status,
		IsPrimary:         d.IsPrimary,
		VerificationToken: d.VerificationToken,
		VerifiedAt:        d.VerifiedAt,
	}
}

// AddDomain 绑定自定义域名
// @Summary 绑定自定义域名
// @Tags Domain (域名)
// @Accept json
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Param body body dto.AddDomainReq true "域名"
// @Success 200 {object} dto.DomainResp "域名（含校验 token）"
// @Router /api/stores/{store}/domains [post]
func (c *StoreController) AddDomain(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	var req dto.AddDomainReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	domain, err := c.storeSvc.AddDomain(ctx.Request.Context(), store, req.Domain, req.IsPrimary)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, toDomainResp(domain))
}

// ListDomains 店铺域名列表
// @Summary 店铺域名列表
// @Tags Domain (域名)
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Success 200 {array} dto.DomainResp "域名列表"
// @Router /api/stores/{store}/domains [get]
func (c *StoreController) ListDomains(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	domains, err := c.storeSvc.ListDomains(ctx.Request.Context(), store)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.DomainResp, 0, len(domains)+1)
	// 隐式子域名不落行，这里拼出来一起返回
	resp = append(resp, dto.DomainResp{
		Domain:    c.storeSvc.ImplicitSubdomain(store),
		Type:      model.DomainTypeSubdomain,
		Status:    model.DomainStatusActive,
		IsPrimary: false,
	})
	for i := range domains {
		resp = append(resp, toDomainResp(&domains[i]))
	}
	ctx.JSON(http.StatusOK, resp)
}

// VerifyDomain 校验自定义域名
// @Summary 校验自定义域名
// @Tags Domain (域名)
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Param id path int true "域名ID"
// @Success 200 {object} dto.DomainResp "域名"
// @Router /api/stores/{store}/domains/{id}/verify [post]
func (c *StoreController) VerifyDomain(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	domainID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的域名ID"})
		return
	}

	domain, err := c.storeSvc.VerifyDomain(ctx.Request.Context(), store, domainID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, toDomainResp(domain))
}

// DeleteDomain 删除自定义域名
// @Summary 删除自定义域名
// @Tags Domain (域名)
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Param id path int true "域名ID"
// @Success 200 {object} map[string]string "结果"
// @Router /api/stores/{store}/domains/{id} [delete]
func (c *StoreController) DeleteDomain(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	domainID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的域名ID"})
		return
	}

	if err := c.storeSvc.DeleteDomain(ctx.Request.Context(), store, domainID); err != nil {
		if errors.Is(err, service.ErrDomainNotDeletable) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "隐式子域名不可删除"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// ==================== 员工令牌 ====================

// IssueEmployeeToken 给员工签发访问令牌
// @Summary 签发员工令牌
// @Description 令牌主体在租户库里，令牌行落中央库并带 store_id
// @Tags Store (店铺管理)
// @Accept json
// @Produce json
// @Param store path string true "店铺ID/slug/加密ID"
// @Param body body dto.IssueTokenReq true "员工与令牌名"
// @Success 200 {object} dto.IssueTokenResp "令牌明文（仅此一次）"
// @Router /api/stores/{store}/tokens [post]
func (c *StoreController) IssueEmployeeToken(ctx *gin.Context) {
	store, ok := c.ownedStore(ctx)
	if !ok {
		return
	}

	var req dto.IssueTokenReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	plain, token, err := c.authSvc.IssueEmployeeToken(ctx.Request.Context(), store, req.EmployeeID, req.Name)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.IssueTokenResp{Token: plain, ExpiresAt: token.ExpiresAt})
}
