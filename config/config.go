package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`
	MaxConcurrency     int64         `mapstructure:"max_concurrency"`

	// 日志配置
	LogLevel string `mapstructure:"log_level"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 会话配置
	SessionStore        string        `mapstructure:"session_store"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	SessionCookieName   string        `mapstructure:"session_cookie_name"`
	SessionCookieSecure bool          `mapstructure:"session_cookie_secure"`
	SessionRolling      bool          `mapstructure:"session_rolling"`

	// Redis 配置（session_store=redis 时使用）
	CacheRedisAddr     string `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string `mapstructure:"cache_redis_password"`
	CacheRedisDB       int    `mapstructure:"cache_redis_db"`

	// 存储配置
	StorageType string `mapstructure:"storage_type"`
	UploadDir   string `mapstructure:"upload_dir"`

	MinioEndpoint        string `mapstructure:"minio_endpoint"`
	MinioAccessKeyID     string `mapstructure:"minio_access_key_id"`
	MinioSecretAccessKey string `mapstructure:"minio_secret_access_key"`
	MinioBucketName      string `mapstructure:"minio_bucket_name"`
	MinioUseSSL          bool   `mapstructure:"minio_use_ssl"`

	WebDAVURL      string        `mapstructure:"webdav_url"`
	WebDAVUsername string        `mapstructure:"webdav_username"`
	WebDAVPassword string        `mapstructure:"webdav_password"`
	WebDAVRootPath string        `mapstructure:"webdav_root_path"`
	WebDAVTimeout  time.Duration `mapstructure:"webdav_timeout"`

	// 上传配置
	UploadMaxSizeMB int `mapstructure:"upload_max_size_mb"`

	// 密码哈希配置
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// 限流配置
	RateLimitAuthRPS    float64       `mapstructure:"rate_limit_auth_rps"`
	RateLimitAuthBurst  int           `mapstructure:"rate_limit_auth_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	cfg, err := Load(viper.GetString("config_file_path"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}
	globalConfig = *cfg
}

// Load 读取指定的 env 文件（为空时读取 .env），环境变量优先
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile == "" {
		envFile = ".env"
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Info: %s not found, using defaults and environment variables\n", envFile)
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", envFile)
	}

	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器配置默认值
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 3000)
	v.SetDefault("server_domain", "")
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_write_timeout", "30s")
	v.SetDefault("server_idle_timeout", "120s")
	v.SetDefault("max_concurrency", 100)

	v.SetDefault("log_level", "info")

	// 数据库配置默认值
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_username", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "image-uploader")
	v.SetDefault("db_file_path", "./data/app.db")
	v.SetDefault("db_max_open_conns", 100)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", 3600)

	// 会话配置默认值
	v.SetDefault("session_store", "memory")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("session_cookie_name", "sid")
	v.SetDefault("session_cookie_secure", false)
	v.SetDefault("session_rolling", false)

	v.SetDefault("cache_redis_addr", "localhost:6379")
	v.SetDefault("cache_redis_password", "")
	v.SetDefault("cache_redis_db", 0)

	// 存储配置默认值
	v.SetDefault("storage_type", "local")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key_id", "")
	v.SetDefault("minio_secret_access_key", "")
	v.SetDefault("minio_bucket_name", "uploads")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("webdav_url", "")
	v.SetDefault("webdav_username", "")
	v.SetDefault("webdav_password", "")
	v.SetDefault("webdav_root_path", "/uploads")
	v.SetDefault("webdav_timeout", "30s")

	// 上传配置默认值
	v.SetDefault("upload_max_size_mb", 5)

	v.SetDefault("bcrypt_cost", 10)

	// 限流配置默认值
	v.SetDefault("rate_limit_auth_rps", 1.0)
	v.SetDefault("rate_limit_auth_burst", 10)
	v.SetDefault("rate_limit_expire_time", "10m")
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 3000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL，用于 CORS 和生成链接
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return c.ServerDomain
	}
	host := c.ServerHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// UploadMaxBytes 单文件上传大小上限（字节）
func (c *Config) UploadMaxBytes() int64 {
	if c.UploadMaxSizeMB <= 0 {
		return 5 << 20
	}
	return int64(c.UploadMaxSizeMB) << 20
}
