package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storehub_v1/internal/controller"
	"storehub_v1/internal/middleware"
)

// Controllers 路由依赖的控制器集合
type Controllers struct {
	Auth    *controller.AuthController
	Store   *controller.StoreController
	Product *controller.ProductController
	Setting *controller.SettingController
}

// Middlewares 路由依赖的中间件集合
type Middlewares struct {
	TenantResolve gin.HandlerFunc
	TokenAuth     gin.HandlerFunc
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers, mws *Middlewares) {
	// 1. Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. API 路由组
	api := r.Group("/api")
	{
		// auth 店主注册登录（中央库）
		auth := api.Group("/auth")
		{
			auth.POST("/register", ctls.Auth.Register)
			auth.POST("/login", ctls.Auth.Login)
		}

		// stores 店主侧店铺/域名管理（JWT）
		stores := api.Group("/stores", middleware.JWTAuth())
		{
			stores.GET("", ctls.Store.List)
			stores.POST("", ctls.Store.Create)
			stores.GET("/:store", ctls.Store.Get)
			stores.PUT("/:store", ctls.Store.Update)
			stores.DELETE("/:store", ctls.Store.Delete)

			stores.GET("/:store/domains", ctls.Store.ListDomains)
			stores.POST("/:store/domains", ctls.Store.AddDomain)
			stores.POST("/:store/domains/:id/verify", ctls.Store.VerifyDomain)
			stores.DELETE("/:store/domains/:id", ctls.Store.DeleteDomain)

			stores.POST("/:store/tokens", ctls.Store.IssueEmployeeToken)
		}

		// t 租户侧路由：先解析店铺挂租户句柄，再尝试令牌认证
		// 解析 → 切库 → 绑定主体，三步严格有序，一步都不能跳
		tenant := api.Group("/t", mws.TenantResolve, mws.TokenAuth)
		{
			tenant.POST("/auth/login", ctls.Auth.EmployeeLogin)

			tenant.GET("/products", ctls.Product.List)
			tenant.GET("/products/:id", ctls.Product.Get)

			// 写操作要求员工令牌
			tenant.POST("/products", middleware.RequireEmployee(), ctls.Product.Create)
			tenant.PUT("/products/:id", middleware.RequireEmployee(), ctls.Product.Update)
			tenant.DELETE("/products/:id", middleware.RequireEmployee(), ctls.Product.Delete)

			tenant.GET("/settings", ctls.Setting.List)
		}
	}
}
