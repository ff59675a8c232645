package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/pkg/database"
)

var (
	// ErrInvalidCredentials 账号或密码错误（不区分具体哪个错）
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken 邮箱已注册
	ErrEmailTaken = errors.New("email already registered")
)

// 员工令牌默认有效期
const employeeTokenTTL = 30 * 24 * time.Hour

// ==================== 认证服务 ====================

// AuthService 店主注册登录（中央库）+ 员工令牌签发（主体在租户库）
type AuthService struct {
	ownerRepo    repository.OwnerRepository
	tokenRepo    repository.TokenRepository
	employeeRepo repository.EmployeeRepository
	manager      *database.TenantManager
}

// NewAuthService 创建认证服务
func NewAuthService(
	ownerRepo repository.OwnerRepository,
	tokenRepo repository.TokenRepository,
	employeeRepo repository.EmployeeRepository,
	manager *database.TenantManager,
) *AuthService {
	return &AuthService{
		ownerRepo:    ownerRepo,
		tokenRepo:    tokenRepo,
		employeeRepo: employeeRepo,
		manager:      manager,
	}
}

// RegisterOwner 店主注册
func (s *AuthService) RegisterOwner(ctx context.Context, name, email, password string) (*model.Owner, error) {
	if existing, err := s.ownerRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	owner := &model.Owner{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.ownerRepo.Create(ctx, owner); err != nil {
		return nil, err
	}
	return owner, nil
}

// LoginOwner 店主登录，校验通过返回店主
func (s *AuthService) LoginOwner(ctx context.Context, email, password string) (*model.Owner, error) {
	owner, err := s.ownerRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return owner, nil
}

// ==================== 员工令牌 ====================

// HashToken 令牌入库只存 SHA-256，明文只在签发时返回一次
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// newPlainToken 生成不透明令牌明文
func newPlainToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "shp_" + hex.EncodeToString(buf), nil
}

// IssueEmployeeToken 给租户库员工签发中央令牌。
// 令牌行带 store_id，认证时据此先切库再加载员工本体。
func (s *AuthService) IssueEmployeeToken(ctx context.Context, store *model.Store, employeeID int64, name string) (string, *model.PersonalAccessToken, error) {
	// 员工必须真实存在于该店铺的租户库里
	tenantDB, err := s.manager.ConnFor(ctx, store)
	if err != nil {
		return "", nil, err
	}
	employee, err := s.employeeRepo.GetByID(ctx, tenantDB, employeeID)
	if err != nil {
		return "", nil, err
	}

	plain, err := newPlainToken()
	if err != nil {
		return "", nil, err
	}

	expires := time.Now().Add(employeeTokenTTL)
	storeID := store.ID
	token := &model.PersonalAccessToken{
		TokenableType: model.TokenableEmployee,
		TokenableID:   employee.ID,
		StoreID:       &storeID,
		Name:          name,
		TokenHash:     HashToken(plain),
		Abilities:     datatypes.JSON([]byte(`["*"]`)),
		ExpiresAt:     &expires,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", nil, err
	}
	return plain, token, nil
}

// LoginEmployee 员工登录：先切到店铺租户库验证口令，再签发中央令牌
func (s *AuthService) LoginEmployee(ctx context.Context, store *model.Store, email, password string) (string, error) {
	tenantDB, err := s.manager.ConnFor(ctx, store)
	if err != nil {
		return "", err
	}

	employee, err := s.employeeRepo.GetByEmail(ctx, tenantDB, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !employee.IsActive {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	plain, _, err := s.IssueEmployeeToken(ctx, store, employee.ID, "employee-login")
	return plain, err
}
