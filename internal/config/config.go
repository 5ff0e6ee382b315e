// Package config 提供配置管理
// 環境変数から caarlos0/env で読み込む。既定値は開発環境向け。
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Validator ValidatorConfig `envPrefix:"VALIDATOR_"`
	Notify    NotifyConfig    `envPrefix:"NOTIFY_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `env:"NAME" envDefault:"banci"`
	Env       string `env:"ENV" envDefault:"development"`
	Port      int    `env:"PORT" envDefault:"7012"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// DatabaseConfig 数据库配置
// Enabled が false の間は永続化せずメモリのみで動く。
type DatabaseConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"false"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"banci"`
	User            string        `env:"USER" envDefault:"banci"`
	Password        string        `env:"PASSWORD" envDefault:"banci123"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SchedulerConfig 排班引擎配置
// 人数・技能の各閾値は约束模型にそのまま渡る。
type SchedulerConfig struct {
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
	CoverageMin int           `env:"COVERAGE_MIN" envDefault:"1"`
	CoverageMax int           `env:"COVERAGE_MAX" envDefault:"3"`
	ManagerMin  int           `env:"MANAGER_MIN" envDefault:"1"`
	ManagerMax  int           `env:"MANAGER_MAX" envDefault:"2"`
	SkillFloor  int           `env:"SKILL_FLOOR" envDefault:"10"`
	PerTypeCap  int           `env:"PER_TYPE_CAP" envDefault:"3"`
	TotalCap    int           `env:"TOTAL_CAP" envDefault:"10"`
}

// ValidatorConfig 校验阈值配置
type ValidatorConfig struct {
	MinStaffPerType     int `env:"MIN_STAFF_PER_TYPE" envDefault:"2"`
	SkillThreshold      int `env:"SKILL_THRESHOLD" envDefault:"3"`
	MaxConsecutiveSlots int `env:"MAX_CONSECUTIVE_SLOTS" envDefault:"2"`
}

// NotifyConfig 外部通知配置
// Endpoint が空なら通知は送られない。
type NotifyConfig struct {
	Endpoint string        `env:"ENDPOINT"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// CacheConfig 生成结果缓存配置
type CacheConfig struct {
	TTL time.Duration `env:"TTL" envDefault:"60m"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗しました: %w", err)
	}
	return cfg, nil
}
