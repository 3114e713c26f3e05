package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Pexels    PexelsConfig    `mapstructure:"pexels"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	Mode      string     `mapstructure:"mode"`
	StaticDir string     `mapstructure:"static_dir"`
	BucketDir string     `mapstructure:"bucket_dir"`
	CORS      CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type ProxyConfig struct {
	Token           string        `mapstructure:"token"`
	AllowedHosts    []string      `mapstructure:"allowed_hosts"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxBytes   int64         `mapstructure:"cache_max_bytes"`
}

type PexelsConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	VideoEndpoint string        `mapstructure:"video_endpoint"`
	PhotoEndpoint string        `mapstructure:"photo_endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

type ResolverConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	PerPage           int           `mapstructure:"per_page"`
	SemanticThreshold float64       `mapstructure:"semantic_threshold"`
	HDMinWidth        int           `mapstructure:"hd_min_width"`
	PageBackoff       time.Duration `mapstructure:"page_backoff"`
	DefaultVideo      string        `mapstructure:"default_video"`
}

type QueueConfig struct {
	Dir     string `mapstructure:"dir"`
	MaxSize int    `mapstructure:"max_size"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	// Backend selects the durable cache tier: "db" (default) or "s3".
	Backend   string `mapstructure:"backend"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Rate    int           `mapstructure:"rate"`
	Window  time.Duration `mapstructure:"window"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.static_dir", "./overlays")
	v.SetDefault("server.bucket_dir", "./bucket")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("proxy.allowed_hosts", []string{
		"videos.pexels.com", "images.pexels.com", "player.vimeo.com", "vimeo.com",
	})
	v.SetDefault("proxy.upstream_timeout", 10*time.Second)
	v.SetDefault("proxy.cache_max_entries", 512)
	v.SetDefault("proxy.cache_ttl", 300*time.Second)
	v.SetDefault("proxy.cache_max_bytes", 5_000_000)
	v.SetDefault("pexels.video_endpoint", "https://api.pexels.com/videos/search")
	v.SetDefault("pexels.photo_endpoint", "https://api.pexels.com/v1/search")
	v.SetDefault("pexels.timeout", 6*time.Second)
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.base_url", "https://api.jina.ai/v1/embeddings")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("resolver.max_attempts", 3)
	v.SetDefault("resolver.per_page", 6)
	v.SetDefault("resolver.semantic_threshold", 0.56)
	v.SetDefault("resolver.hd_min_width", 1280)
	v.SetDefault("resolver.page_backoff", 500*time.Millisecond)
	v.SetDefault("resolver.default_video", "https://upload.wikimedia.org/wikipedia/commons/transcoded/c/c0/Big_Buck_Bunny_4K.webm/Big_Buck_Bunny_4K.webm.480p.vp9.webm")
	v.SetDefault("queue.dir", "./bucket/news/queue")
	v.SetDefault("queue.max_size", 50)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/proxy_cache.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.backend", "db")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "proxy-cache")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rate", 60)
	v.SetDefault("ratelimit.window", time.Minute)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("proxy.token", "PROXY_TOKEN")
	v.BindEnv("pexels.api_key", "PEXELS_API_KEY")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	v.BindEnv("embedding.model", "EMBEDDING_MODEL")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.backend", "STORAGE_BACKEND")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
