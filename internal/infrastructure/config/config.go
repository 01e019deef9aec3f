package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Nutrition   NutritionConfig  `mapstructure:"nutrition"`
	Translator  TranslatorConfig `mapstructure:"translator"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig 資料庫設定，driver 為 postgres 或 sqlite
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig 計時器使用的 Redis 設定
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NutritionConfig 營養計算設定
type NutritionConfig struct {
	Source            string        `mapstructure:"source"` // openfoodfacts 或 static
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	PageSize          int           `mapstructure:"page_size"`
	LookupTimeout     time.Duration `mapstructure:"lookup_timeout"`
	Concurrency       int           `mapstructure:"concurrency"`
	OnUnresolved      string        `mapstructure:"on_unresolved"` // reject 或 store_unknown
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RetryCount        int           `mapstructure:"retry_count"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 熔斷器設定
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// TranslatorConfig 食材名稱翻譯設定
type TranslatorConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	TargetLanguage string        `mapstructure:"target_language"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"database.driver":          "DATABASE_DRIVER",
		"database.dsn":             "DATABASE_URL",
		"redis.addr":               "REDIS_ADDR",
		"redis.password":           "REDIS_PASSWORD",
		"redis.enabled":            "REDIS_ENABLED",
		"nutrition.source":         "NUTRITION_SOURCE",
		"nutrition.on_unresolved":  "NUTRITION_ON_UNRESOLVED",
		"nutrition.lookup_timeout": "NUTRITION_LOOKUP_TIMEOUT",
		"translator.enabled":       "TRANSLATOR_ENABLED",
		"translator.api_key":       "GOOGLE_TRANSLATE_API_KEY",
		"translator.base_url":      "TRANSLATOR_BASE_URL",
		"rate_limit.enabled":       "RATE_LIMIT_ENABLED",
		"rate_limit.requests":      "RATE_LIMIT_REQUESTS",
		"rate_limit.window":        "RATE_LIMIT_WINDOW",
		"dedup_window":             "DEDUP_WINDOW",
		"log_level":                "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"database_driver:", v.GetString("database.driver"),
		"nutrition_source:", v.GetString("nutrition.source"),
		"translator_api_key:", maskAPIKey(v.GetString("translator.api_key")),
	)

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "plateful")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// 資料庫設定
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:plateful.db?_pragma=foreign_keys(1)")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	// Redis 設定
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 營養計算設定
	v.SetDefault("nutrition.source", "openfoodfacts")
	v.SetDefault("nutrition.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("nutrition.user_agent", "plateful/1.0")
	v.SetDefault("nutrition.page_size", 5)
	v.SetDefault("nutrition.lookup_timeout", "5s")
	v.SetDefault("nutrition.concurrency", 8)
	v.SetDefault("nutrition.on_unresolved", "reject")
	v.SetDefault("nutrition.requests_per_second", 5)
	v.SetDefault("nutrition.retry_count", 2)
	v.SetDefault("nutrition.retry_wait", "200ms")
	v.SetDefault("nutrition.breaker.max_requests", 3)
	v.SetDefault("nutrition.breaker.interval", "1m")
	v.SetDefault("nutrition.breaker.timeout", "30s")
	v.SetDefault("nutrition.breaker.min_requests", 10)
	v.SetDefault("nutrition.breaker.failure_ratio", 0.6)

	// 翻譯設定
	v.SetDefault("translator.enabled", false)
	v.SetDefault("translator.base_url", "https://translation.googleapis.com")
	v.SetDefault("translator.target_language", "en")
	v.SetDefault("translator.max_attempts", 3)
	v.SetDefault("translator.backoff", "200ms")
	v.SetDefault("translator.timeout", "3s")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	switch config.Nutrition.Source {
	case "openfoodfacts", "static":
	default:
		return fmt.Errorf("unsupported nutrition source %q", config.Nutrition.Source)
	}
	switch config.Nutrition.OnUnresolved {
	case "reject", "store_unknown":
	default:
		return fmt.Errorf("invalid nutrition.on_unresolved %q", config.Nutrition.OnUnresolved)
	}
	if config.Nutrition.LookupTimeout <= 0 {
		return fmt.Errorf("invalid nutrition lookup timeout")
	}
	if config.Nutrition.Concurrency <= 0 {
		return fmt.Errorf("invalid nutrition concurrency")
	}

	if config.Translator.Enabled && config.Translator.APIKey == "" {
		return fmt.Errorf("translator api key is required when translator is enabled")
	}
	if config.Translator.MaxAttempts <= 0 {
		return fmt.Errorf("invalid translator max attempts")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
