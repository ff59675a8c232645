package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storehub_v1/internal/config"
	"storehub_v1/internal/controller"
	"storehub_v1/internal/middleware"
	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/internal/router"
	"storehub_v1/internal/service"
	"storehub_v1/internal/task"
	"storehub_v1/pkg/database"
	"storehub_v1/pkg/encid"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	// 2. 初始化中央库
	db := initCentralDB(cfg)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db)

	// 4. 启动定时任务
	initTasks(deps)

	// 5. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.Controllers, deps.Middlewares)

	// 6. 启动服务
	startServer(r, cfg.HTTPPort, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB            *gorm.DB
	TenantManager *database.TenantManager
	Repos         *Repositories
	Services      *Services
	Controllers   *router.Controllers
	Middlewares   *router.Middlewares
	Tasks         *Tasks
}

// Repositories 仓库集合
type Repositories struct {
	Store    repository.StoreRepository
	Domain   repository.DomainRepository
	Owner    repository.OwnerRepository
	Token    repository.TokenRepository
	Product  repository.ProductRepository
	Employee repository.EmployeeRepository
	Setting  repository.SettingRepository
}

// Services 服务集合
type Services struct {
	Provision *service.ProvisionService
	Resolver  *service.ResolverService
	Lifecycle *service.LifecycleService
	Store     *service.StoreService
	Auth      *service.AuthService
}

// Tasks 定时任务集合
type Tasks struct {
	Trial          *task.TrialTask
	ProvisionSweep *task.ProvisionSweepTask
}

// ==================== 初始化函数 ====================

// initCentralDB 初始化中央库（landlord）
func initCentralDB(cfg *config.Config) *gorm.DB {
	return database.InitCentralDB(cfg.CentralDSN,
		&model.Owner{}, &model.Store{}, &model.Domain{},
		&model.Subscription{}, &model.PersonalAccessToken{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	// -------- 租户连接管理 --------
	admin := database.InitCentralDB(cfg.AdminDSN())
	manager := database.NewTenantManager(func(name string) gorm.Dialector {
		return postgres.Open(cfg.TenantDSN(name))
	}, database.NewPgClusterAdmin(admin))

	// -------- 加密 ID --------
	codec := encid.NewCodec(cfg.HashidSalt, cfg.HashidMinLength)

	// -------- JWT --------
	jwtCfg := middleware.DefaultJWTConfig()
	jwtCfg.SecretKey = cfg.JWTSecret
	middleware.SetJWTConfig(jwtCfg)

	// -------- Repo 层 --------
	repos := &Repositories{
		Store:    repository.NewStoreRepository(db),
		Domain:   repository.NewDomainRepository(db),
		Owner:    repository.NewOwnerRepository(db),
		Token:    repository.NewTokenRepository(db),
		Product:  repository.NewProductRepository(),
		Employee: repository.NewEmployeeRepository(),
		Setting:  repository.NewSettingRepository(),
	}

	// -------- Service 层 --------
	provisionSvc := service.NewProvisionService(repos.Store, manager, cfg.TenantDBPrefix)
	lifecycleSvc := service.NewLifecycleService(
		repos.Store, repos.Token, repos.Setting,
		provisionSvc, manager, codec,
		cfg.AssetRoot, cfg.AutoProvision,
	)
	resolverSvc := service.NewResolverService(repos.Store, codec, cfg.BaseDomain)
	storeSvc := service.NewStoreService(repos.Store, repos.Domain, lifecycleSvc, codec, cfg.BaseDomain)
	authSvc := service.NewAuthService(repos.Owner, repos.Token, repos.Employee, manager)

	services := &Services{
		Provision: provisionSvc,
		Resolver:  resolverSvc,
		Lifecycle: lifecycleSvc,
		Store:     storeSvc,
		Auth:      authSvc,
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Auth:    controller.NewAuthController(authSvc),
		Store:   controller.NewStoreController(storeSvc, authSvc),
		Product: controller.NewProductController(repos.Product, codec),
		Setting: controller.NewSettingController(repos.Setting),
	}

	// -------- Middleware --------
	middlewares := &router.Middlewares{
		TenantResolve: middleware.TenantResolve(resolverSvc, manager),
		TokenAuth: middleware.TokenAuth(
			repos.Token, repos.Owner, repos.Store, repos.Employee, manager,
		),
	}

	// -------- 定时任务 --------
	tasks := &Tasks{
		Trial:          task.NewTrialTask(repos.Store),
		ProvisionSweep: task.NewProvisionSweepTask(repos.Store, provisionSvc),
	}

	return &Dependencies{
		DB:            db,
		TenantManager: manager,
		Repos:         repos,
		Services:      services,
		Controllers:   controllers,
		Middlewares:   middlewares,
		Tasks:         tasks,
	}
}

// initTasks 启动定时任务
func initTasks(deps *Dependencies) {
	deps.Tasks.Trial.Start()
	deps.Tasks.ProvisionSweep.Start()
}

// startServer 启动 HTTP 服务并处理优雅退出
func startServer(r *gin.Engine, port int, deps *Dependencies) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		log.Printf("HTTP 服务已启动，监听 :%d", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务异常退出: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到退出信号，正在优雅关闭...")

	deps.Tasks.Trial.Stop()
	deps.Tasks.ProvisionSweep.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP 服务关闭失败: %v", err)
	}

	deps.TenantManager.Close()
	log.Println("服务已退出")
}
