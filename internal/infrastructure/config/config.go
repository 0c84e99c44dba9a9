package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Search      SearchConfig     `mapstructure:"search"`
	Dataset     DatasetConfig    `mapstructure:"dataset"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
	Cache       CacheConfig      `mapstructure:"cache"`
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
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// OpenRouterConfig 生成式文字服務（OpenAI 相容）配置
type OpenRouterConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// SearchConfig 外部搜尋服務配置
type SearchConfig struct {
	Web          WebSearchConfig    `mapstructure:"web"`
	Video        VideoSearchConfig  `mapstructure:"video"`
	Encyclopedia EncyclopediaConfig `mapstructure:"encyclopedia"`
	UserAgent    string             `mapstructure:"user_agent"`
}

// WebSearchConfig 網頁與圖片搜尋（SerpAPI）
type WebSearchConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Engine  string        `mapstructure:"engine"`
	Locale  string        `mapstructure:"locale"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// VideoSearchConfig 影片搜尋（YouTube Data API v3）
type VideoSearchConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	RegionCode string        `mapstructure:"region_code"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// EncyclopediaConfig 百科查詢（MediaWiki API）
type EncyclopediaConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Language string        `mapstructure:"language"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DatasetConfig 本地食譜資料集
type DatasetConfig struct {
	Path              string  `mapstructure:"path"`
	NameColumn        string  `mapstructure:"name_column"`
	IngredientsColumn string  `mapstructure:"ingredients_column"`
	MinMatchRatio     float64 `mapstructure:"min_match_ratio"`
}

// PipelineConfig 推薦管線參數
type PipelineConfig struct {
	MaxResults          int           `mapstructure:"max_results"`
	WebResults          int           `mapstructure:"web_results"`
	VideoResults        int           `mapstructure:"video_results"`
	EncyclopediaResults int           `mapstructure:"encyclopedia_results"`
	EncyclopediaChars   int           `mapstructure:"encyclopedia_chars"`
	Workers             int           `mapstructure:"workers"`
	SourceTimeout       time.Duration `mapstructure:"source_timeout"`
}

// CacheConfig 生成式回應快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Type            string        `mapstructure:"type"` // "memory" 或 "redis"
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時僅使用環境變數與預設值
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"openrouter.api_key":           "OPENROUTER_API_KEY",
		"openrouter.model":             "OPENROUTER_MODEL",
		"openrouter.max_tokens":        "MODEL_MAX_TOKENS",
		"search.web.api_key":           "SERPAPI_KEY",
		"search.video.api_key":         "YOUTUBE_API_KEY",
		"search.encyclopedia.language": "WIKIPEDIA_LANGUAGE",
		"dataset.path":                 "DATASET_PATH",
		"cache.enabled":                "CACHE_ENABLED",
		"cache.type":                   "CACHE_TYPE",
		"cache.redis_addr":             "REDIS_ADDR",
		"cache.redis_password":         "REDIS_PASSWORD",
		"rate_limit.enabled":           "RATE_LIMIT_ENABLED",
		"rate_limit.requests":          "RATE_LIMIT_REQUESTS",
		"rate_limit.window":            "RATE_LIMIT_WINDOW",
		"dedup_window":                 "DEDUP_WINDOW",
		"log_level":                    "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	// 設定檔可選：config.yaml
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "openrouter_api_key:", maskAPIKey(v.GetString("openrouter.api_key")), "openrouter_model:", v.GetString("openrouter.model"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

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
	v.SetDefault("app.name", "recipe-suggester")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "90s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// OpenRouter 設定
	v.SetDefault("openrouter.enabled", true)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemini-2.0-flash-001")
	v.SetDefault("openrouter.max_tokens", 600)
	v.SetDefault("openrouter.temperature", 0.7)
	v.SetDefault("openrouter.timeout", "30s")
	v.SetDefault("openrouter.requests_per_second", 5)
	v.SetDefault("openrouter.burst", 5)

	// 搜尋設定
	v.SetDefault("search.user_agent", "Mozilla/5.0 (compatible; RecipeSuggester/1.0)")
	v.SetDefault("search.web.base_url", "https://serpapi.com")
	v.SetDefault("search.web.engine", "google")
	v.SetDefault("search.web.locale", "vn")
	v.SetDefault("search.web.timeout", "15s")
	v.SetDefault("search.video.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("search.video.region_code", "VN")
	v.SetDefault("search.video.timeout", "15s")
	v.SetDefault("search.encyclopedia.enabled", true)
	v.SetDefault("search.encyclopedia.language", "vi")
	v.SetDefault("search.encyclopedia.timeout", "15s")

	// 資料集設定
	v.SetDefault("dataset.path", "data/recipes.csv")
	v.SetDefault("dataset.name_column", "name")
	v.SetDefault("dataset.ingredients_column", "ingredients")
	v.SetDefault("dataset.min_match_ratio", 0.5)

	// 管線設定
	v.SetDefault("pipeline.max_results", 10)
	v.SetDefault("pipeline.web_results", 5)
	v.SetDefault("pipeline.video_results", 3)
	v.SetDefault("pipeline.encyclopedia_results", 1)
	v.SetDefault("pipeline.encyclopedia_chars", 1500)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.source_timeout", "15s")

	// 快取設定（預設關閉，每個請求獨立）
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Dataset.MinMatchRatio < 0 || config.Dataset.MinMatchRatio > 1 {
		return fmt.Errorf("dataset min match ratio must be within [0,1], got %v", config.Dataset.MinMatchRatio)
	}

	if config.Pipeline.MaxResults <= 0 {
		return fmt.Errorf("invalid pipeline max results")
	}
	if config.Pipeline.Workers <= 0 {
		return fmt.Errorf("invalid pipeline workers")
	}

	if config.Cache.Enabled {
		switch config.Cache.Type {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required when cache type is 'redis'")
			}
		default:
			return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
