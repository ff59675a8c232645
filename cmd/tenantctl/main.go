package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storehub_v1/internal/config"
	"storehub_v1/internal/model"
	"storehub_v1/internal/repository"
	"storehub_v1/internal/service"
	"storehub_v1/pkg/database"
)

// tenantctl 租户库运维命令行
// 只操作租户库，永远不碰中央库结构
func main() {
	app := &cli.App{
		Name:  "tenantctl",
		Usage: "多租户店铺数据库运维工具",
		Commands: []*cli.Command{
			createDatabaseCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("执行失败: %v", err)
	}
}

// ==================== 运行环境 ====================

type env struct {
	cfg       *config.Config
	storeRepo repository.StoreRepository
	provision *service.ProvisionService
	manager   *database.TenantManager
}

func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db := database.InitCentralDB(cfg.CentralDSN)
	admin := database.InitCentralDB(cfg.AdminDSN())
	manager := database.NewTenantManager(func(name string) gorm.Dialector {
		return postgres.Open(cfg.TenantDSN(name))
	}, database.NewPgClusterAdmin(admin))

	storeRepo := repository.NewStoreRepository(db)
	provision := service.NewProvisionService(storeRepo, manager, cfg.TenantDBPrefix)

	return &env{
		cfg:       cfg,
		storeRepo: storeRepo,
		provision: provision,
		manager:   manager,
	}, nil
}

// resolveStore 按数字ID或 slug 定位店铺
func (e *env) resolveStore(ctx context.Context, ident string) (*model.Store, error) {
	if id, err := strconv.ParseInt(ident, 10, 64); err == nil {
		return e.storeRepo.GetByID(ctx, id)
	}
	return e.storeRepo.GetBySlug(ctx, ident)
}

// printBatch 输出批量结果，任一失败则以退出码 1 结束
func printBatch(result *service.BatchResult) error {
	for id, err := range result.Errors {
		log.Printf("店铺 %d 失败: %v", id, err)
	}
	fmt.Printf("provisioned=%d failed=%d\n", result.Succeeded, result.Failed)
	if result.Failed > 0 {
		return cli.Exit("部分店铺处理失败", 1)
	}
	return nil
}

// ==================== 命令 ====================

// createDatabaseCommand 建库命令：创建租户库并执行迁移+种子
func createDatabaseCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-database",
		Usage:     "为店铺创建租户数据库（建库+迁移+种子）",
		ArgsUsage: "[店铺ID或slug]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "处理所有店铺"},
			&cli.BoolFlag{Name: "force", Usage: "已有库时删除重建"},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.manager.Close()
			ctx := context.Background()

			if c.Bool("all") {
				result, err := e.provision.ProvisionAll(ctx, c.Bool("force"))
				if err != nil {
					return err
				}
				return printBatch(result)
			}

			if c.NArg() != 1 {
				return cli.Exit("请指定店铺ID或slug，或使用 --all", 1)
			}
			store, err := e.resolveStore(ctx, c.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("店铺不存在: %v", err), 1)
			}

			if err := e.provision.CreateTenantDatabase(ctx, store, c.Bool("force")); err != nil {
				return cli.Exit(fmt.Sprintf("建库失败: %v", err), 1)
			}
			if err := e.provision.MigrateTenant(ctx, store, false); err != nil {
				return cli.Exit(fmt.Sprintf("迁移失败: %v", err), 1)
			}
			if err := e.provision.SeedTenant(ctx, store); err != nil {
				return cli.Exit(fmt.Sprintf("种子失败: %v", err), 1)
			}

			fmt.Printf("店铺 %d (%s) 数据库已就绪: %s\n", store.ID, store.Slug, store.DBName())
			return nil
		},
	}
}

// migrateCommand 迁移命令：只迁移已建库的店铺
func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "执行租户库结构迁移",
		ArgsUsage: "[店铺ID或slug]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "处理所有已建库的店铺"},
			&cli.BoolFlag{Name: "fresh", Usage: "先删表再迁移（需配合 --force 确认）"},
			&cli.BoolFlag{Name: "seed", Usage: "迁移后执行种子数据"},
			&cli.BoolFlag{Name: "force", Usage: "跳过 fresh 的二次确认"},
		},
		Action: func(c *cli.Context) error {
			fresh := c.Bool("fresh")
			if fresh && !c.Bool("force") {
				return cli.Exit("--fresh 会清空租户库全部数据，请加 --force 确认", 1)
			}

			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.manager.Close()
			ctx := context.Background()

			if c.Bool("all") {
				result, err := e.provision.MigrateAll(ctx, fresh, c.Bool("seed"))
				if err != nil {
					return err
				}
				return printBatch(result)
			}

			if c.NArg() != 1 {
				return cli.Exit("请指定店铺ID或slug，或使用 --all", 1)
			}
			store, err := e.resolveStore(ctx, c.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("店铺不存在: %v", err), 1)
			}

			if err := e.provision.MigrateTenant(ctx, store, fresh); err != nil {
				return cli.Exit(fmt.Sprintf("迁移失败: %v", err), 1)
			}
			if c.Bool("seed") {
				if err := e.provision.SeedTenant(ctx, store); err != nil {
					return cli.Exit(fmt.Sprintf("种子失败: %v", err), 1)
				}
			}

			fmt.Printf("店铺 %d (%s) 迁移完成\n", store.ID, store.Slug)
			return nil
		},
	}
}
