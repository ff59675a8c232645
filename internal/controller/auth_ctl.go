package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storehub_v1/internal/api/dto"
	"storehub_v1/internal/middleware"
	"storehub_v1/internal/service"
)

type AuthController struct {
	authSvc *service.AuthService
}

func NewAuthController(authSvc *service.AuthService) *AuthController {
	return &AuthController{authSvc: authSvc}
}

// Register 店主注册
// @Summary 店主注册
// @Tags Auth (认证)
// @Accept json
// @Produce json
// @Param body body dto.RegisterReq true "注册信息"
// @Success 200 {object} dto.TokenPairResp "Token 对"
// @Failure 400 {object} map[string]string "参数错误"
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	owner, err := c.authSvc.RegisterOwner(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "邮箱已注册"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	access, refresh, err := middleware.GenerateTokenPair(owner.ID, owner.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.TokenPairResp{AccessToken: access, RefreshToken: refresh})
}

// Login 店主登录
// @Summary 店主登录
// @Tags Auth (认证)
// @Accept json
// @Produce json
// @Param body body dto.LoginReq true "登录信息"
// @Success 200 {object} dto.TokenPairResp "Token 对"
// @Failure 401 {object} map[string]string "账号或密码错误"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	owner, err := c.authSvc.LoginOwner(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "账号或密码错误"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	access, refresh, err := middleware.GenerateTokenPair(owner.ID, owner.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.TokenPairResp{AccessToken: access, RefreshToken: refresh})
}

// EmployeeLogin 员工登录（走租户解析，店铺由域名/请求头确定）
// @Summary 员工登录
// @Tags Auth (认证)
// @Accept json
// @Produce json
// @Param body body dto.EmployeeLoginReq true "登录信息"
// @Success 200 {object} dto.EmployeeLoginResp "员工令牌"
// @Failure 401 {object} map[string]string "账号或密码错误"
// @Router /api/t/auth/login [post]
func (c *AuthController) EmployeeLogin(ctx *gin.Context) {
	var req dto.EmployeeLoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	store := middleware.GetStore(ctx)
	if store == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "店铺不存在"})
		return
	}

	token, err := c.authSvc.LoginEmployee(ctx.Request.Context(), store, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "账号或密码错误"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.EmployeeLoginResp{Token: token})
}
