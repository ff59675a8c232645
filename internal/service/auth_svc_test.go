package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/database"
)

// authEnv 认证服务测试环境
type authEnv struct {
	svc       *AuthService
	tokenRepo repository.TokenRepository
	manager   *database.TenantManager
	storeRepo repository.StoreRepository
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

	ownerRepo := repository.NewOwnerRepository(central)
	tokenRepo := repository.NewTokenRepository(central)
	empRepo := repository.NewEmployeeRepository()

	return &authEnv{
		svc:       NewAuthService(ownerRepo, tokenRepo, empRepo, manager),
		tokenRepo: tokenRepo,
		manager:   manager,
		storeRepo: repository.NewStoreRepository(central),
	}
}

// provisionedStoreWithEmployee 建好租户库并塞一名员工
func (e *authEnv) provisionedStoreWithEmployee(t *testing.T, password string) (*model.Store, *model.Employee) {
	t.Helper()
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

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成口令哈希失败: %v", err)
	}
	employee := &model.Employee{
		Name: "小王", Email: "wang@acme.test",
		PasswordHash: string(hash), IsActive: true,
	}
	err = e.manager.WithTenant(ctx, store, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&model.Employee{}); err != nil {
			return err
		}
		return tx.Create(employee).Error
	})
	if err != nil {
		t.Fatalf("准备员工失败: %v", err)
	}
	return store, employee
}

// TestRegisterAndLoginOwner 注册登录闭环 + 重复邮箱拒绝
func TestRegisterAndLoginOwner(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()

	owner, err := e.svc.RegisterOwner(ctx, "老板", "boss@example.com", "secret123")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if owner.PasswordHash == "secret123" {
		t.Fatal("口令不应明文入库")
	}

	if _, err := e.svc.RegisterOwner(ctx, "李鬼", "boss@example.com", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("重复邮箱期望 ErrEmailTaken, 实际 %v", err)
	}

	got, err := e.svc.LoginOwner(ctx, "boss@example.com", "secret123")
	if err != nil || got.ID != owner.ID {
		t.Fatalf("登录失败: %v", err)
	}

	if _, err := e.svc.LoginOwner(ctx, "boss@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("错误口令期望 ErrInvalidCredentials, 实际 %v", err)
	}
	if _, err := e.svc.LoginOwner(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("不存在的账号期望 ErrInvalidCredentials, 实际 %v", err)
	}
}

// TestIssueEmployeeToken 员工令牌带 store_id，明文只出现一次，库里只存哈希
func TestIssueEmployeeToken(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	store, employee := e.provisionedStoreWithEmployee(t, "pass1234")

	plain, record, err := e.svc.IssueEmployeeToken(ctx, store, employee.ID, "pos-terminal")
	if err != nil {
		t.Fatalf("签发失败: %v", err)
	}
	if !strings.HasPrefix(plain, "shp_") {
		t.Fatalf("令牌明文应带 shp_ 前缀: %s", plain)
	}
	if record.StoreID == nil || *record.StoreID != store.ID {
		t.Fatal("员工令牌必须带 store_id")
	}
	if record.TokenHash == plain {
		t.Fatal("令牌不应明文入库")
	}
	if record.ExpiresAt == nil || !record.ExpiresAt.After(time.Now()) {
		t.Fatal("员工令牌应带未来的过期时间")
	}

	// 哈希可反查
	found, err := e.tokenRepo.GetByHash(ctx, HashToken(plain))
	if err != nil || found.ID != record.ID {
		t.Fatalf("按哈希反查令牌失败: %v", err)
	}
}

// TestIssueTokenUnknownEmployee 员工不存在不签发
func TestIssueTokenUnknownEmployee(t *testing.T) {
	e := newAuthEnv(t)
	store, _ := e.provisionedStoreWithEmployee(t, "pass1234")

	if _, _, err := e.svc.IssueEmployeeToken(context.Background(), store, 9999, "x"); err == nil {
		t.Fatal("不存在的员工不应签发成功")
	}
}

// TestIssueTokenUnprovisionedStore 未建库店铺不签发
func TestIssueTokenUnprovisionedStore(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()

	store := &model.Store{
		Name: "Acme", Slug: "acme", OwnerID: 1,
		Status: model.StoreStatusPending, IsActive: true,
	}
	if err := e.storeRepo.Create(ctx, store); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}

	_, _, err := e.svc.IssueEmployeeToken(ctx, store, 1, "x")
	if !errors.Is(err, database.ErrTenantNotProvisioned) {
		t.Fatalf("期望 ErrTenantNotProvisioned, 实际 %v", err)
	}
}

// TestLoginEmployee 员工登录：租户库验口令，中央库发令牌
func TestLoginEmployee(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	store, _ := e.provisionedStoreWithEmployee(t, "pass1234")

	plain, err := e.svc.LoginEmployee(ctx, store, "wang@acme.test", "pass1234")
	if err != nil {
		t.Fatalf("员工登录失败: %v", err)
	}
	if plain == "" {
		t.Fatal("登录成功应返回令牌明文")
	}

	if _, err := e.svc.LoginEmployee(ctx, store, "wang@acme.test", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("错误口令期望 ErrInvalidCredentials, 实际 %v", err)
	}
	if _, err := e.svc.LoginEmployee(ctx, store, "nobody@acme.test", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("不存在的员工期望 ErrInvalidCredentials, 实际 %v", err)
	}
}
