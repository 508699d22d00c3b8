package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/joho/godotenv"
)

// DefaultUpstreamURL 邮箱服务商的改密接口
const DefaultUpstreamURL = "https://api.firstmail.ltd/v1/mail/change/password"

type ServerConfig struct {
	Address string `json:"address"`
}

type LogConfig struct {
	Level string `json:"level"` // debug|info|warn|error
}

type UpstreamConfig struct {
	URL     string   `json:"url"`
	Timeout Duration `json:"timeout"` // 单个上游调用的超时，如 "10s"
}

type ProxyConfig struct {
	Path     string         `json:"path"` // 对外暴露的代理路径
	Upstream UpstreamConfig `json:"upstream"`
}

type SecurityConfig struct {
	MaxBodySize    int64    `json:"maxBodySize"` // 单位：字节
	AllowedMethods []string `json:"allowedMethods"`
}

type TimeoutConfig struct {
	RequestTimeout int `json:"requestTimeout"` // 单位：秒
}

type CORSConfig struct {
	AllowOrigins     []string `json:"allowOrigins"`
	AllowMethods     []string `json:"allowMethods"`
	AllowHeaders     []string `json:"allowHeaders"`
	ExposeHeaders    []string `json:"exposeHeaders"`
	AllowCredentials bool     `json:"allowCredentials"`
	MaxAge           Duration `json:"maxAge"` // 如 "24h"
	TrustedDomains   []string `json:"trustedDomains"`
}

// AllowsAnyOrigin 是否配置了通配来源
func (c CORSConfig) AllowsAnyOrigin() bool {
	for _, o := range c.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

type MiddlewareConfig struct {
	Security SecurityConfig `json:"security"`
	Timeout  TimeoutConfig  `json:"timeout"`
	CORS     CORSConfig     `json:"cors"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DatabaseConfig 审计库连接配置
type DatabaseConfig struct {
	Driver      string `json:"driver"`      // mysql | sqlite
	Host        string `json:"host"`        // 数据库主机地址（unix socket 模式下为 socket 路径）
	Port        int    `json:"port"`        // 数据库端口
	Username    string `json:"username"`    // 数据库用户名
	Password    string `json:"password"`    // 数据库密码
	DBName      string `json:"dbname"`      // 数据库名称
	Path        string `json:"path"`        // sqlite 文件路径
	UseUnixSock bool   `json:"useUnixSock"` // 是否使用Unix套接字连接
	MinPoolSize int    `json:"minPoolSize"` // 连接池最小连接数
	MaxPoolSize int    `json:"maxPoolSize"` // 连接池最大连接数
	LogLevel    string `json:"logLevel"`    // GORM日志级别
}

type AuditConfig struct {
	Enabled        bool           `json:"enabled"`
	FingerprintKey string         `json:"fingerprintKey"` // API key 指纹的密钥
	Database       DatabaseConfig `json:"database"`
}

type Config struct {
	Server     ServerConfig     `json:"server"`
	Log        LogConfig        `json:"log"`
	Proxy      ProxyConfig      `json:"proxy"`
	Middleware MiddlewareConfig `json:"middleware"`
	Metrics    MetricsConfig    `json:"metrics"`
	Audit      AuditConfig      `json:"audit"`
	Env        string           `json:"env"` // 环境标识
}

// Default 返回一份默认配置的副本
func Default() *Config {
	cfg := Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		Proxy: ProxyConfig{
			Path: "/api/proxy",
			Upstream: UpstreamConfig{
				URL:     DefaultUpstreamURL,
				Timeout: Duration(10 * time.Second),
			},
		},
		Middleware: MiddlewareConfig{
			Security: SecurityConfig{
				MaxBodySize:    64 << 10, // 64KB，改密请求只有四个字段
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			},
			Timeout: TimeoutConfig{
				RequestTimeout: 15,
			},
			CORS: CORSConfig{
				AllowOrigins: []string{"*"},
				AllowMethods: []string{"POST", "OPTIONS"},
				AllowHeaders: []string{"Content-Type"},
				MaxAge:       Duration(24 * time.Hour),
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Audit: AuditConfig{
			Enabled:        false,
			FingerprintKey: "dev-fingerprint-key-change-me",
			Database: DatabaseConfig{
				Driver:      "mysql",
				Host:        "localhost",
				Port:        3306,
				Username:    "root",
				Password:    "root",
				DBName:      "password_proxy",
				Path:        "password_proxy.db",
				MinPoolSize: 2,
				MaxPoolSize: 10,
				LogLevel:    "warn",
			},
		},
		Env: "development",
	}
	return &cfg
}

// IsProd 判断当前是否生产环境
func (c *Config) IsProd() bool {
	return c.Env == "production"
}

// Load 加载配置（优先级：环境变量 > .env > 配置文件 > 默认值）
func Load() *Config {
	config := Default()

	// 1. 尝试从配置文件加载
	if configPath := getConfigPath(); configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			hlog.Warnf("Failed to load config file %s: %v", configPath, err)
		}
	}

	// 2. .env 只补充未设置的环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		hlog.Warnf("Failed to load .env: %v", err)
	}

	// 3. 从环境变量覆盖
	loadFromEnv(config)

	return config
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	if path := os.Getenv("APP_CONFIG"); path != "" {
		return path
	}

	searchPaths := []string{
		"./config.json",
		"../config.json",
		"/etc/mail-password-proxy/config.json",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadFromFile 从文件加载配置
func loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, config)
}

// loadFromEnv 从环境变量加载配置
func loadFromEnv(config *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		config.Server.Address = v
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		config.Env = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = strings.ToLower(v)
	}

	// 代理配置
	if v := os.Getenv("PROXY_PATH"); v != "" {
		if !strings.HasPrefix(v, "/") {
			v = "/" + v
		}
		config.Proxy.Path = v
	}

	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		config.Proxy.Upstream.URL = v
	}

	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Proxy.Upstream.Timeout = Duration(d)
		} else {
			hlog.Warnf("Invalid UPSTREAM_TIMEOUT format: %v", err)
		}
	}

	// 中间件配置
	if v := os.Getenv("MAX_BODY_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Middleware.Security.MaxBodySize = size
		}
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			config.Middleware.Timeout.RequestTimeout = timeout
		}
	}

	if list := splitEnvList(os.Getenv("CORS_ALLOW_ORIGINS")); len(list) > 0 {
		config.Middleware.CORS.AllowOrigins = list
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		config.Metrics.Enabled = parseBool(v)
	}

	// 审计配置
	if v := os.Getenv("AUDIT_ENABLED"); v != "" {
		config.Audit.Enabled = parseBool(v)
	}

	if v := os.Getenv("AUDIT_FINGERPRINT_KEY"); v != "" {
		config.Audit.FingerprintKey = v
	}

	db := &config.Audit.Database
	if v := os.Getenv("DB_DRIVER"); v != "" {
		db.Driver = strings.ToLower(v)
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		db.Host = v
	}

	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			db.Port = port
		}
	}

	if v := os.Getenv("DB_USER"); v != "" {
		db.Username = v
	}

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		db.Password = v
	}

	if v := os.Getenv("DB_NAME"); v != "" {
		db.DBName = v
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		db.Path = v
	}

	if v := os.Getenv("DB_SOCKET"); v != "" {
		db.UseUnixSock = parseBool(v)
	}

	if v := os.Getenv("DB_MIN_POOL"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			db.MinPoolSize = size
		}
	}

	if v := os.Getenv("DB_MAX_POOL"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			db.MaxPoolSize = size
		}
	}

	if v := os.Getenv("DB_LOG_LEVEL"); v != "" {
		db.LogLevel = strings.ToLower(v)
	}
}

// 分割环境变量列表（支持逗号分隔的字符串）
func splitEnvList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// 转换字符串为布尔值
func parseBool(value string) bool {
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes"
}

// ApplyLogLevel 根据配置设置 hlog 级别
func (c *Config) ApplyLogLevel() {
	switch c.Log.Level {
	case "debug":
		hlog.SetLevel(hlog.LevelDebug)
	case "warn":
		hlog.SetLevel(hlog.LevelWarn)
	case "error":
		hlog.SetLevel(hlog.LevelError)
	default:
		hlog.SetLevel(hlog.LevelInfo)
	}
}
