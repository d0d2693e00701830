package config

import (
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
	ModeTest    Mode = "test"
)

type Config struct {
	Host    string  `envconfig:"HOST" mapstructure:"host"`
	Port    string  `envconfig:"PORT" mapstructure:"port"`
	Domain  string  `envconfig:"DOMAIN" mapstructure:"domain"`
	Prefix  string  `envconfig:"PREFIX" mapstructure:"prefix"`
	Mode    Mode    `envconfig:"MODE" mapstructure:"mode"`
	Storage Storage `mapstructure:"storage"`
	Mysql   Mysql   `mapstructure:"mysql"`
	Redis   Redis   `mapstructure:"redis"`
	JWT     JWT     `mapstructure:"jwt"`
	Log     Log     `mapstructure:"log"`
	Sentry  Sentry  `mapstructure:"sentry"`
	S3      S3      `mapstructure:"s3"`
	Backend Backend `mapstructure:"backend"`
}

type Storage struct {
	Home    string `envconfig:"STORAGE_HOME" mapstructure:"home"`         // 封面文档本地保存目录
	BaseURL string `envconfig:"STORAGE_BASE_URL" mapstructure:"base_url"` // 本地文档访问前缀
}

type S3 struct {
	Enable          bool   `mapstructure:"enable"`
	Endpoint        string `mapstructure:"endpoint"`
	BaseURL         string `mapstructure:"base_url"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_key"`
	Prefix          string `mapstructure:"prefix"`
	UsePathStyle    bool   `mapstructure:"path_style"`
}

type Mysql struct {
	Driver   string `envconfig:"DB_DRIVER" mapstructure:"driver"` // mysql 或 sqlite
	Host     string `envconfig:"DB_HOST" mapstructure:"host"`
	Port     string `envconfig:"DB_PORT" mapstructure:"port"`
	Username string `envconfig:"DB_USERNAME" mapstructure:"username"`
	Password string `envconfig:"DB_PASSWORD" mapstructure:"password"`
	DBName   string `envconfig:"DB_NAME" mapstructure:"db_name"` // sqlite 时为文件路径
}

type Redis struct {
	Host     string `envconfig:"REDIS_HOST" mapstructure:"host"`
	Port     string `envconfig:"REDIS_PORT" mapstructure:"port"`
	Password string `envconfig:"REDIS_PASSWORD" mapstructure:"password"`
	DB       int    `envconfig:"REDIS_DB" mapstructure:"db"`
}

type JWT struct {
	AccessSecret string `envconfig:"ACCESS_SECRET" mapstructure:"access_secret"`
	AccessExpire int64  `envconfig:"ACCESS_EXPIRE" mapstructure:"access_expire"` // 秒
}

type Log struct {
	FilePath   string `envconfig:"LOG_FILE_PATH" mapstructure:"file_path"`     // 日志文件路径
	Level      string `envconfig:"LOG_LEVEL" mapstructure:"level"`             // 日志级别：debug, info, warn, error
	MaxSize    int    `envconfig:"LOG_MAX_SIZE" mapstructure:"max_size"`       // 日志文件最大大小（MB）
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `envconfig:"LOG_MAX_AGE" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `envconfig:"LOG_COMPRESS" mapstructure:"compress"`       // 是否压缩旧日志文件
}

type Sentry struct {
	Dsn         string  `envconfig:"SENTRY_DSN" mapstructure:"dsn"`
	Environment string  `envconfig:"SENTRY_ENVIRONMENT" mapstructure:"environment"`
	SampleRate  float64 `envconfig:"SENTRY_SAMPLE_RATE" mapstructure:"sample_rate"`
	TraceHTTP   bool    `envconfig:"SENTRY_TRACE_HTTP" mapstructure:"trace_http"` // 是否追踪出站 HTTP 调用
	// 数据库和 Redis 操作耗时低于该值（毫秒）的 span 不上报，0 表示全部上报
	SlowThresholdMs int `envconfig:"SENTRY_SLOW_THRESHOLD_MS" mapstructure:"slow_threshold_ms"`
}

// Backend 客户端（portalctl）访问后端记录系统的配置
type Backend struct {
	BaseURL     string `envconfig:"BACKEND_BASE_URL" mapstructure:"base_url"`
	TimeoutSec  int    `envconfig:"BACKEND_TIMEOUT" mapstructure:"timeout"`
	SessionFile string `envconfig:"BACKEND_SESSION_FILE" mapstructure:"session_file"`
}

const envPrefix = "PORTAL"

var (
	instance *Config
	once     sync.Once
)

// Init 读取配置文件并用环境变量覆盖，重复调用无副作用
func Init() {
	once.Do(func() {
		cfg, err := Load(os.Getenv("CONFIG_PATH"))
		if err != nil {
			panic(err)
		}
		instance = cfg
	})
}

// Get 获取全局配置，未初始化时按默认值初始化
func Get() *Config {
	Init()
	return instance
}

// Set 直接替换全局配置，测试使用
func Set(cfg *Config) {
	once.Do(func() {})
	instance = cfg
}

// Load 读取 path 指向的 yaml 配置（可为空），再叠加 PORTAL_ 前缀的环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("prefix", "api")
	v.SetDefault("mode", string(ModeDebug))
	v.SetDefault("storage.home", "./data/cover-pages")
	v.SetDefault("storage.base_url", "/files")
	v.SetDefault("mysql.driver", "mysql")
	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", "3306")
	v.SetDefault("mysql.db_name", "extension_portal")
	v.SetDefault("jwt.access_secret", "change-me")
	v.SetDefault("jwt.access_expire", 7*24*3600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("backend.base_url", "http://127.0.0.1:8080/api")
	v.SetDefault("backend.timeout", 10)
}
