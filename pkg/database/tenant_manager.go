package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storehub_v1/internal/model"
)

// ErrTenantNotProvisioned 店铺还没有租户库，任何租户级查询都必须挡下
var ErrTenantNotProvisioned = errors.New("tenant database not provisioned")

// DialectorFactory 按库名生成 gorm Dialector
// 生产环境拼 Postgres DSN；测试环境指向 sqlite 文件
type DialectorFactory func(databaseName string) gorm.Dialector

// ==================== 租户连接管理器 ====================

// TenantManager 租户连接切换器。
// 句柄按库名缓存并显式返回给调用方（请求级传递），
// 不设进程级"当前租户"可变槽位，杜绝跨请求的脏租户残留。
// 跨租户隔离完全依赖句柄指向哪个物理库，这里是全系统最敏感的一层。
type TenantManager struct {
	dialector DialectorFactory
	admin     ClusterAdmin
	logLevel  logger.LogLevel

	mu    sync.RWMutex
	conns map[string]*gorm.DB
}

// NewTenantManager 创建租户连接管理器
func NewTenantManager(dialector DialectorFactory, admin ClusterAdmin) *TenantManager {
	return &TenantManager{
		dialector: dialector,
		admin:     admin,
		logLevel:  logger.Warn,
		conns:     make(map[string]*gorm.DB),
	}
}

// SetLogLevel 设置租户连接的 gorm 日志级别（测试置 Silent）
func (m *TenantManager) SetLogLevel(level logger.LogLevel) {
	m.logLevel = level
}

// Admin 暴露集群 DDL 接口给建库服务
func (m *TenantManager) Admin() ClusterAdmin {
	return m.admin
}

// ConnFor 取店铺租户库句柄。
// 未建库返回 ErrTenantNotProvisioned；同店铺重复调用复用缓存句柄（幂等），
// 同一请求内换店铺调用时各自拿各自的句柄，互不覆盖。
func (m *TenantManager) ConnFor(ctx context.Context, store *model.Store) (*gorm.DB, error) {
	if store == nil || !store.IsProvisioned() {
		return nil, ErrTenantNotProvisioned
	}
	return m.connByName(ctx, store.DBName())
}

func (m *TenantManager) connByName(ctx context.Context, name string) (*gorm.DB, error) {
	m.mu.RLock()
	db, ok := m.conns[name]
	m.mu.RUnlock()
	if ok {
		return db.WithContext(ctx), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if db, ok = m.conns[name]; ok {
		return db.WithContext(ctx), nil
	}

	db, err := gorm.Open(m.dialector(name), &gorm.Config{
		Logger: logger.Default.LogMode(m.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("打开租户库 %s 失败: %w", name, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		// 租户库连接池比中央库收紧，库多时避免连接数爆炸
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	m.conns[name] = db
	log.Printf("[Tenant] 已接入租户库: %s", name)
	return db.WithContext(ctx), nil
}

// Purge 关闭并剔除某个库的缓存句柄
// 删库前必须调用，防止句柄继续指向已销毁的库
func (m *TenantManager) Purge(databaseName string) {
	m.mu.Lock()
	db, ok := m.conns[databaseName]
	if ok {
		delete(m.conns, databaseName)
	}
	m.mu.Unlock()

	if ok {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		log.Printf("[Tenant] 已清除租户库句柄: %s", databaseName)
	}
}

// WithTenant 作用域执行：回调拿到指向指定店铺租户库的句柄。
// 后台任务和 CLI 不依赖请求上下文，统一走这里建立自己的租户作用域。
func (m *TenantManager) WithTenant(ctx context.Context, store *model.Store, fn func(tx *gorm.DB) error) error {
	db, err := m.ConnFor(ctx, store)
	if err != nil {
		return err
	}
	return fn(db)
}

// CachedCount 当前缓存的句柄数（观测用）
func (m *TenantManager) CachedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Close 关闭全部租户句柄（进程退出时调用）
func (m *TenantManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, db := range m.conns {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		delete(m.conns, name)
	}
}
