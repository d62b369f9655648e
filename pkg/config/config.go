package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig `mapstructure:"jwt"`
	Session   SessionConfig
	Log       LogConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Admin     AdminConfig
	Notify    NotifyConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver     string // postgres 或 sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string // sqlite 数据库文件路径
}

type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`     // JWT密钥
	TokenDuration string `mapstructure:"token_duration"` // 令牌有效期，如 "24h"
}

// SessionConfig 会话Cookie配置
type SessionConfig struct {
	CookieName string
	Domain     string
	Secure     bool
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type RedisConfig struct {
	Host     string // Redis主机地址
	Port     int    // Redis端口
	Password string // Redis密码
	DB       int    // Redis数据库编号
	Prefix   string // 队列键前缀
}

type CORSConfig struct {
	AllowOrigins     []string // 允许的源
	AllowMethods     []string // 允许的HTTP方法
	AllowHeaders     []string // 允许的请求头
	ExposeHeaders    []string // 暴露的响应头
	AllowCredentials bool     // 是否允许携带凭证
	MaxAge           int      // 预检请求缓存时间（小时）
}

// AdminConfig 启动时初始化的管理员账号
type AdminConfig struct {
	Username string
	Password string
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	Driver   string // log、queue 或 smtp
	FromName string
	FromAddr string
}

// SMTPConfig 邮件服务器配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// RateLimitConfig 登录限流配置
type RateLimitConfig struct {
	LoginRPS   float64 // 每个IP每秒允许的登录请求数
	LoginBurst int
}

// 全局配置实例和同步锁
var (
	globalConfig *Config
	once         sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		var err error
		globalConfig, err = LoadConfig()
		if err != nil {
			panic("Failed to load config: " + err.Error())
		}
	})
	return globalConfig
}

// 获取环境变量，如果不存在则使用默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 获取环境变量转换为int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 获取环境变量转换为float64
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// 获取环境变量转换为bool
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// 获取环境变量转换为字符串数组（逗号分隔）
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// .env 不存在时直接使用环境变量
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("SERVER_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "boarding_house"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "data/boarding_house.db"),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", "default-secret-change-me"),
			TokenDuration: getEnv("JWT_TOKEN_DURATION", "24h"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "bhms_session"),
			Domain:     getEnv("SESSION_COOKIE_DOMAIN", ""),
			Secure:     getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "bhms:mail"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type", "X-Request-ID"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", "admin123"),
		},
		Notify: NotifyConfig{
			Driver:   getEnv("NOTIFY_DRIVER", "log"),
			FromName: getEnv("NOTIFY_FROM_NAME", "Boarding House System"),
			FromAddr: getEnv("NOTIFY_FROM_ADDR", "no-reply@example.com"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		RateLimit: RateLimitConfig{
			LoginRPS:   getEnvAsFloat("RATE_LIMIT_LOGIN_RPS", 1),
			LoginBurst: getEnvAsInt("RATE_LIMIT_LOGIN_BURST", 5),
		},
	}

	return config, nil
}
