package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ==================== 集群管理接口 ====================

var (
	// ErrDatabaseAlreadyExists 目标库已存在且未指定 force
	ErrDatabaseAlreadyExists = errors.New("tenant database already exists")
	// ErrDatabaseCreationFailed 建库失败
	ErrDatabaseCreationFailed = errors.New("tenant database creation failed")
)

// ClusterAdmin 租户库集群的 DDL 操作（建库/删库/存在性检查）
// 生产环境走 Postgres；测试用 sqlite 文件实现，见 sqliteAdmin
type ClusterAdmin interface {
	CreateDatabase(ctx context.Context, name string) error
	// DropDatabase 幂等：目标库不存在时不报错
	DropDatabase(ctx context.Context, name string) error
	DatabaseExists(ctx context.Context, name string) (bool, error)
}

// ==================== Postgres 实现 ====================

// pgClusterAdmin 通过连到 postgres 系统库的管理连接执行 DDL
type pgClusterAdmin struct {
	admin *gorm.DB
}

// NewPgClusterAdmin 创建 Postgres 集群管理器
func NewPgClusterAdmin(admin *gorm.DB) ClusterAdmin {
	return &pgClusterAdmin{admin: admin}
}

func (a *pgClusterAdmin) CreateDatabase(ctx context.Context, name string) error {
	// CREATE DATABASE 不支持参数绑定，库名来自 prefix+ID，不含用户输入
	sql := fmt.Sprintf(`CREATE DATABASE %q`, name)
	if err := a.admin.WithContext(ctx).Exec(sql).Error; err != nil {
		// 并发建库竞争靠唯一库名 + 捕获冲突串行化，不加锁
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && (pqErr.Code == "42P04" || pqErr.Code == "23505") {
			return ErrDatabaseAlreadyExists
		}
		if strings.Contains(err.Error(), "already exists") {
			return ErrDatabaseAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrDatabaseCreationFailed, err)
	}
	log.Printf("[Cluster] 建库成功: %s", name)
	return nil
}

func (a *pgClusterAdmin) DropDatabase(ctx context.Context, name string) error {
	sql := fmt.Sprintf(`DROP DATABASE IF EXISTS %q`, name)
	if err := a.admin.WithContext(ctx).Exec(sql).Error; err != nil {
		return fmt.Errorf("删库 %s 失败: %w", name, err)
	}
	log.Printf("[Cluster] 删库完成: %s", name)
	return nil
}

func (a *pgClusterAdmin) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := a.admin.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM pg_database WHERE datname = ?`, name,
	).Scan(&count).Error
	return count > 0, err
}

// ==================== sqlite 实现（测试用） ====================

// sqliteAdmin 把"库"落成目录下的 .db 文件，语义与 Postgres 实现对齐
type sqliteAdmin struct {
	dir string
}

// NewSqliteClusterAdmin 创建 sqlite 集群管理器，dir 为库文件目录
func NewSqliteClusterAdmin(dir string) ClusterAdmin {
	return &sqliteAdmin{dir: dir}
}

// SqliteDBPath 某个"库"对应的文件路径
func SqliteDBPath(dir, name string) string {
	return filepath.Join(dir, name+".db")
}

func (a *sqliteAdmin) CreateDatabase(_ context.Context, name string) error {
	path := SqliteDBPath(a.dir, name)
	if _, err := os.Stat(path); err == nil {
		return ErrDatabaseAlreadyExists
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrDatabaseAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrDatabaseCreationFailed, err)
	}
	return f.Close()
}

func (a *sqliteAdmin) DropDatabase(_ context.Context, name string) error {
	err := os.Remove(SqliteDBPath(a.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (a *sqliteAdmin) DatabaseExists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(SqliteDBPath(a.dir, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
