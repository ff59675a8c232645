package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storehub_v1/internal/model"
	"storehub_v1/internal/service"
	"storehub_v1/pkg/database"
)

// ==================== 租户上下文 ====================

// Context Keys
const (
	ContextKeyStore    = "store"
	ContextKeyTenantDB = "tenant_db"
)

// TenantResolve 租户解析中间件。
// 每个打租户数据的请求都必须经过这里：解析店铺 → 挂上下文 → 取租户句柄。
// 句柄是本次请求新取的，绝不信任上一个请求留下的任何租户状态。
func TenantResolve(resolver *service.ResolverService, manager *database.TenantManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		in := service.ResolveInput{
			RouteParam:      c.Param("store"),
			HeaderStoreID:   c.GetHeader("X-Store-ID"),
			HeaderStoreSlug: c.GetHeader("X-Store-Slug"),
			Host:            c.Request.Host,
		}

		store, err := resolver.Resolve(c.Request.Context(), in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrStoreNotFound):
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺不存在"})
			case errors.Is(err, service.ErrStoreUnavailable):
				c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "店铺暂停营业"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "店铺解析失败"})
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyStore, store)

		// 未建库的店铺照常解析通过（开通引导期），
		// 但不挂句柄，后续租户查询会在 RequireTenantDB 处被挡下
		if store.IsProvisioned() {
			db, err := manager.ConnFor(c.Request.Context(), store)
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"code": 502, "message": "租户库不可用"})
				c.Abort()
				return
			}
			c.Set(ContextKeyTenantDB, db)
		}

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// GetStore 从 Context 取已解析的店铺
func GetStore(c *gin.Context) *model.Store {
	if v, exists := c.Get(ContextKeyStore); exists {
		return v.(*model.Store)
	}
	return nil
}

// GetTenantDB 从 Context 取租户句柄（可能没有）
func GetTenantDB(c *gin.Context) (*gorm.DB, bool) {
	if v, exists := c.Get(ContextKeyTenantDB); exists {
		return v.(*gorm.DB), true
	}
	return nil, false
}

// RequireTenantDB 取租户句柄，没有则按"系统尚未就绪"返回 502 并中止
// 店铺未建库属于平台侧缺口，不是客户端错误
func RequireTenantDB(c *gin.Context) (*gorm.DB, bool) {
	db, ok := GetTenantDB(c)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"code": 502, "message": "店铺数据库尚未开通"})
		c.Abort()
		return nil, false
	}
	return db, true
}
