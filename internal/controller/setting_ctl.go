package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storehub_v1/internal/middleware"
	"storehub_v1/internal/repository"
)

// SettingController 租户侧店铺设置接口
type SettingController struct {
	settingRepo repository.SettingRepository
}

func NewSettingController(settingRepo repository.SettingRepository) *SettingController {
	return &SettingController{settingRepo: settingRepo}
}

// List 店铺全部设置
// @Summary 店铺设置
// @Tags Setting (设置)
// @Produce json
// @Success 200 {array} model.Setting "设置列表"
// @Router /api/t/settings [get]
func (c *SettingController) List(ctx *gin.Context) {
	db, ok := middleware.RequireTenantDB(ctx)
	if !ok {
		return
	}

	settings, err := c.settingRepo.All(ctx.Request.Context(), db)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, settings)
}
