package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
// 在启动时构造一次，显式传入各层，不使用全局开关
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	RSVP     RSVPConfig     `mapstructure:"rsvp"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port          int        `mapstructure:"port"`
	BaseURL       string     `mapstructure:"base_url"`        // API 对外地址
	PublicSiteURL string     `mapstructure:"public_site_url"` // 前台站点地址，用于拼接 RSVP 链接与管理链接
	CORS          CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（限流 + 会话黑名单）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 婚礼主人会话配置
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	OwnerTokenTTL time.Duration `mapstructure:"owner_token_ttl"`
}

// RSVPConfig 邀请与回复相关参数
type RSVPConfig struct {
	CodeSegmentLength  int    `mapstructure:"code_segment_length"` // 邀请码单段长度（共两段）
	CodeMaxAttempts    int    `mapstructure:"code_max_attempts"`   // 邀请码冲突重试上限
	EventWindowDays    int    `mapstructure:"event_window_days"`   // 子活动日期偏离婚期超过该天数时给出警告
	MaxBatchSize       int    `mapstructure:"max_batch_size"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"` // 公开邀请码接口每 IP 每分钟请求上限
	DefaultLocale      string `mapstructure:"default_locale"`
}

// CodeEntropyBits 邀请码总熵（两段 [a-z0-9]）
func (c *RSVPConfig) CodeEntropyBits() float64 {
	return float64(2*c.CodeSegmentLength) * math.Log2(36)
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 为可选文件，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.public_site_url", "http://localhost:3000")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "wedly")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.owner_token_ttl", "12h")

	v.SetDefault("rsvp.code_segment_length", 6)
	v.SetDefault("rsvp.code_max_attempts", 5)
	v.SetDefault("rsvp.event_window_days", 7)
	v.SetDefault("rsvp.max_batch_size", 500)
	v.SetDefault("rsvp.rate_limit_per_minute", 30)
	v.SetDefault("rsvp.default_locale", "zh")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("WEDLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.RSVP.CodeEntropyBits() < 60 {
		return fmt.Errorf("配置校验失败: rsvp.code_segment_length 过短，邀请码熵不足 60 bit")
	}
	if c.RSVP.CodeMaxAttempts < 1 {
		return fmt.Errorf("配置校验失败: rsvp.code_max_attempts 至少为 1")
	}
	if c.RSVP.MaxBatchSize < 1 {
		return fmt.Errorf("配置校验失败: rsvp.max_batch_size 至少为 1")
	}
	return nil
}
