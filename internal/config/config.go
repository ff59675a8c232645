package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ==================== 平台配置 ====================

// Config 平台全局配置
// 所有配置项均可通过 STOREHUB_ 前缀的环境变量覆盖
type Config struct {
	// HTTP 服务
	HTTPPort int    `mapstructure:"HTTP_PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`

	// 中央库（landlord）连接
	CentralDSN string `mapstructure:"CENTRAL_DSN"`

	// 租户库集群（所有租户库建在同一 PG 集群上）
	TenantDBHost     string `mapstructure:"TENANT_DB_HOST"`
	TenantDBPort     int    `mapstructure:"TENANT_DB_PORT"`
	TenantDBUser     string `mapstructure:"TENANT_DB_USER"`
	TenantDBPassword string `mapstructure:"TENANT_DB_PASSWORD"`
	TenantDBSSLMode  string `mapstructure:"TENANT_DB_SSLMODE"`

	// 租户库命名前缀，库名 = 前缀 + 店铺ID
	TenantDBPrefix string `mapstructure:"TENANT_DB_PREFIX"`

	// 店铺创建后是否自动建库
	AutoProvision bool `mapstructure:"AUTO_PROVISION"`

	// 平台主域名，如 storehub.test；子域名解析以此为后缀
	BaseDomain string `mapstructure:"BASE_DOMAIN"`

	// 加密 ID
	HashidSalt      string `mapstructure:"HASHID_SALT"`
	HashidMinLength int    `mapstructure:"HASHID_MIN_LENGTH"`

	// JWT
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// 店铺资源目录（Logo、上传文件等非数据库资产）
	AssetRoot string `mapstructure:"ASSET_ROOT"`
}

// Load 加载配置（环境变量 > .env 文件 > 默认值）
func Load() (*Config, error) {
	viper.SetDefault("HTTP_PORT", 8080)
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("CENTRAL_DSN", "host=localhost user=storehub password=storehub dbname=storehub_central port=5432 sslmode=disable")
	viper.SetDefault("TENANT_DB_HOST", "localhost")
	viper.SetDefault("TENANT_DB_PORT", 5432)
	viper.SetDefault("TENANT_DB_USER", "storehub")
	viper.SetDefault("TENANT_DB_PASSWORD", "storehub")
	viper.SetDefault("TENANT_DB_SSLMODE", "disable")
	viper.SetDefault("TENANT_DB_PREFIX", "storehub_store_")
	viper.SetDefault("AUTO_PROVISION", true)
	viper.SetDefault("BASE_DOMAIN", "storehub.test")
	viper.SetDefault("HASHID_SALT", "storehub-encid-salt-change-in-production")
	viper.SetDefault("HASHID_MIN_LENGTH", 12)
	viper.SetDefault("JWT_SECRET", "storehub-secret-key-change-in-production")
	viper.SetDefault("ASSET_ROOT", "./storage/stores")

	viper.SetEnvPrefix("STOREHUB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 本地开发可放一个 .env，不存在则忽略
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &cfg, nil
}

// TenantDSN 拼接某个租户库的连接串
func (c *Config) TenantDSN(databaseName string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.TenantDBHost, c.TenantDBUser, c.TenantDBPassword,
		databaseName, c.TenantDBPort, c.TenantDBSSLMode)
}

// AdminDSN 租户集群管理连接（连接到 postgres 系统库，用于建库/删库）
func (c *Config) AdminDSN() string {
	return c.TenantDSN("postgres")
}
