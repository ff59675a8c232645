package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/internal/service"
	"storehub_v1/pkg/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authEnv 令牌认证测试环境
type authEnv struct {
	central   *gorm.DB
	manager   *database.TenantManager
	tokenRepo repository.TokenRepository
	ownerRepo repository.OwnerRepository
	storeRepo repository.StoreRepository
	empRepo   repository.EmployeeRepository
	handler   gin.HandlerFunc
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	central, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开中央库失败: %v", err)
	}
	err = central.AutoMigrate(&model.Owner{}, &model.Store{}, &model.PersonalAccessToken{})
	if err != nil {
		t.Fatalf("中央库迁移失败: %v", err)
	}

	dir := t.TempDir()
	manager := database.NewTenantManager(func(name string) gorm.Dialector {
		return sqlite.Open(database.SqliteDBPath(dir, name))
	}, database.NewSqliteClusterAdmin(dir))
	manager.SetLogLevel(logger.Silent)
	t.Cleanup(manager.Close)

	e := &authEnv{
		central:   central,
		manager:   manager,
		tokenRepo: repository.NewTokenRepository(central),
		ownerRepo: repository.NewOwnerRepository(central),
		storeRepo: repository.NewStoreRepository(central),
		empRepo:   repository.NewEmployeeRepository(),
	}
	e.handler = TokenAuth(e.tokenRepo, e.ownerRepo, e.storeRepo, e.empRepo, manager)
	return e
}

// perform 过一遍中间件，返回最终进入 handler 时的 Context 快照
func (e *authEnv) perform(t *testing.T, authHeader string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var captured *gin.Context
	r := gin.New()
	r.GET("/ping", e.handler, func(c *gin.Context) {
		captured = c.Copy()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return captured, w
}

func (e *authEnv) createToken(t *testing.T, tokenableType string, tokenableID int64, storeID *int64, expiresAt *time.Time) string {
	t.Helper()
	plain := "shp_test_" + tokenableType + "_token"
	record := &model.PersonalAccessToken{
		TokenableType: tokenableType,
		TokenableID:   tokenableID,
		StoreID:       storeID,
		TokenHash:     service.HashToken(plain),
		ExpiresAt:     expiresAt,
	}
	if err := e.tokenRepo.Create(context.Background(), record); err != nil {
		t.Fatalf("创建令牌失败: %v", err)
	}
	return plain
}

// TestOwnerTokenAuth 店主令牌认证成功并挂主体
func TestOwnerTokenAuth(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()

	owner := &model.Owner{Name: "老板", Email: "boss@example.com", PasswordHash: "x"}
	if err := e.ownerRepo.Create(ctx, owner); err != nil {
		t.Fatalf("创建店主失败: %v", err)
	}
	plain := e.createToken(t, model.TokenableOwner, owner.ID, nil, nil)

	c, w := e.perform(t, "Bearer "+plain)
	if w.Code != http.StatusOK {
		t.Fatalf("请求不应失败: %d", w.Code)
	}
	if userType, _ := c.Get(ContextKeyUserType); userType != model.TokenableOwner {
		t.Fatalf("user_type 期望 owner, 实际 %v", userType)
	}

	// 认证成功应更新 last_used_at
	record, err := e.tokenRepo.GetByHash(ctx, service.HashToken(plain))
	if err != nil {
		t.Fatalf("查询令牌失败: %v", err)
	}
	if record.LastUsedAt == nil {
		t.Fatal("认证成功后 last_used_at 应已更新")
	}
}

// TestEmployeeTokenAuth 员工令牌：切到租户库加载主体，挂店铺和句柄
func TestEmployeeTokenAuth(t *testing.T) {
	e := newAuthEnv(t)
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

	var employee model.Employee
	err := e.manager.WithTenant(ctx, store, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&model.Employee{}); err != nil {
			return err
		}
		employee = model.Employee{Name: "小王", Email: "wang@acme.test", IsActive: true}
		return tx.Create(&employee).Error
	})
	if err != nil {
		t.Fatalf("准备员工失败: %v", err)
	}

	plain := e.createToken(t, model.TokenableEmployee, employee.ID, &store.ID, nil)

	c, w := e.perform(t, "Bearer "+plain)
	if w.Code != http.StatusOK {
		t.Fatalf("请求不应失败: %d", w.Code)
	}
	if userType, _ := c.Get(ContextKeyUserType); userType != model.TokenableEmployee {
		t.Fatalf("user_type 期望 employee, 实际 %v", userType)
	}
	if got := GetEmployee(c); got == nil || got.ID != employee.ID {
		t.Fatalf("员工主体未正确挂载: %+v", got)
	}
	if got := GetStore(c); got == nil || got.ID != store.ID {
		t.Fatal("店铺未挂载到上下文")
	}
	if _, ok := GetTenantDB(c); !ok {
		t.Fatal("租户句柄未挂载到上下文")
	}
}

// TestEmployeeTokenUnprovisionedStore 店铺未建库的员工令牌降级为未认证而非 500
func TestEmployeeTokenUnprovisionedStore(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()

	store := &model.Store{
		Name: "Acme", Slug: "acme", OwnerID: 1,
		Status: model.StoreStatusPending, IsActive: true,
	}
	if err := e.storeRepo.Create(ctx, store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	plain := e.createToken(t, model.TokenableEmployee, 1, &store.ID, nil)

	c, w := e.perform(t, "Bearer "+plain)
	if w.Code != http.StatusOK {
		t.Fatalf("应降级为未认证而非失败: %d", w.Code)
	}
	if _, exists := c.Get(ContextKeyUserType); exists {
		t.Fatal("未建库店铺的员工令牌不应认证成功")
	}
}

// TestExpiredToken 过期令牌不认证
func TestExpiredToken(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()

	owner := &model.Owner{Name: "老板", Email: "boss@example.com", PasswordHash: "x"}
	if err := e.ownerRepo.Create(ctx, owner); err != nil {
		t.Fatalf("创建店主失败: %v", err)
	}
	expired := time.Now().Add(-time.Hour)
	plain := e.createToken(t, model.TokenableOwner, owner.ID, nil, &expired)

	c, w := e.perform(t, "Bearer "+plain)
	if w.Code != http.StatusOK {
		t.Fatalf("应降级为未认证而非失败: %d", w.Code)
	}
	if _, exists := c.Get(ContextKeyUserType); exists {
		t.Fatal("过期令牌不应认证成功")
	}
}

// TestBearerSkipsJWT 带两个点的 Bearer（JWT）不归本中间件处理
func TestBearerSkipsJWT(t *testing.T) {
	e := newAuthEnv(t)

	c, w := e.perform(t, "Bearer aaa.bbb.ccc")
	if w.Code != http.StatusOK {
		t.Fatalf("请求不应失败: %d", w.Code)
	}
	if _, exists := c.Get(ContextKeyUserType); exists {
		t.Fatal("JWT 形态的令牌不应走不透明令牌认证")
	}
}

// TestUnknownToken 查无此令牌静默降级
func TestUnknownToken(t *testing.T) {
	e := newAuthEnv(t)

	c, w := e.perform(t, "Bearer shp_nonexistent")
	if w.Code != http.StatusOK {
		t.Fatalf("应降级为未认证而非失败: %d", w.Code)
	}
	if _, exists := c.Get(ContextKeyUserType); exists {
		t.Fatal("未知令牌不应认证成功")
	}
}

// TestRequireEmployee 未认证请求被员工门槛拦下
func TestRequireEmployee(t *testing.T) {
	r := gin.New()
	r.GET("/protected", RequireEmployee(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("未认证期望 401, 实际 %d", w.Code)
	}
}
