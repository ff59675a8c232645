package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/internal/service"
	"storehub_v1/pkg/database"
	"storehub_v1/pkg/encid"
)

// tenantEnv 租户解析中间件测试环境
type tenantEnv struct {
	storeRepo repository.StoreRepository
	manager   *database.TenantManager
	handler   gin.HandlerFunc
}

func newTenantEnv(t *testing.T) *tenantEnv {
	t.Helper()

	central, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开中央库失败: %v", err)
	}
	if err := central.AutoMigrate(&model.Store{}); err != nil {
		t.Fatalf("中央库迁移失败: %v", err)
	}

	dir := t.TempDir()
	manager := database.NewTenantManager(func(name string) gorm.Dialector {
		return sqlite.Open(database.SqliteDBPath(dir, name))
	}, database.NewSqliteClusterAdmin(dir))
	manager.SetLogLevel(logger.Silent)
	t.Cleanup(manager.Close)

	storeRepo := repository.NewStoreRepository(central)
	codec := encid.NewCodec("test-salt", 12)
	resolver := service.NewResolverService(storeRepo, codec, "storehub.test")

	return &tenantEnv{
		storeRepo: storeRepo,
		manager:   manager,
		handler:   TenantResolve(resolver, manager),
	}
}

func (e *tenantEnv) perform(t *testing.T, routeParam string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var captured *gin.Context
	r := gin.New()
	r.GET("/t/:store/ping", e.handler, func(c *gin.Context) {
		captured = c.Copy()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t/"+routeParam+"/ping", nil))
	return captured, w
}

// TestTenantResolveProvisioned 已建库店铺：挂店铺 + 租户句柄
func TestTenantResolveProvisioned(t *testing.T) {
	e := newTenantEnv(t)
	ctx := context.Background()

	dbName := "storehub_store_1"
	store := &model.Store{
		Name: "Acme", Slug: "acme", OwnerID: 1,
		Status: model.StoreStatusActive, IsActive: true,
		DatabaseName: &dbName,
	}
	if err := e.storeRepo.Create(ctx, store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	if err := e.manager.Admin().CreateDatabase(ctx, dbName); err != nil {
		t.Fatalf("建库失败: %v", err)
	}

	c, w := e.perform(t, "acme")
	if w.Code != http.StatusOK {
		t.Fatalf("请求期望 200, 实际 %d", w.Code)
	}
	if got := GetStore(c); got == nil || got.ID != store.ID {
		t.Fatal("店铺未挂载到上下文")
	}
	if _, ok := GetTenantDB(c); !ok {
		t.Fatal("已建库店铺应挂租户句柄")
	}
}

// TestTenantResolveUnprovisioned 未建库店铺解析通过但不挂句柄
func TestTenantResolveUnprovisioned(t *testing.T) {
	e := newTenantEnv(t)

	store := &model.Store{
		Name: "Acme", Slug: "acme", OwnerID: 1,
		Status: model.StoreStatusPending, IsActive: true,
	}
	if err := e.storeRepo.Create(context.Background(), store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}

	c, w := e.perform(t, "acme")
	if w.Code != http.StatusOK {
		t.Fatalf("未建库店铺解析应通过, 实际 %d", w.Code)
	}
	if GetStore(c) == nil {
		t.Fatal("店铺未挂载到上下文")
	}
	if _, ok := GetTenantDB(c); ok {
		t.Fatal("未建库店铺不应挂租户句柄")
	}
}

// TestTenantResolveNotFound 未知店铺 404
func TestTenantResolveNotFound(t *testing.T) {
	e := newTenantEnv(t)

	_, w := e.perform(t, "no-such-store")
	if w.Code != http.StatusNotFound {
		t.Fatalf("未知店铺期望 404, 实际 %d", w.Code)
	}
}

// TestTenantResolveSuspended 停用店铺 403，与 404 严格区分
func TestTenantResolveSuspended(t *testing.T) {
	e := newTenantEnv(t)

	store := &model.Store{
		Name: "Stale", Slug: "stale", OwnerID: 1,
		Status: model.StoreStatusSuspended, IsActive: false,
	}
	if err := e.storeRepo.Create(context.Background(), store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}

	_, w := e.perform(t, "stale")
	if w.Code != http.StatusForbidden {
		t.Fatalf("停用店铺期望 403, 实际 %d", w.Code)
	}
}
