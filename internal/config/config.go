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
	Database  DatabaseConfig  `mapstructure:"database"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
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

type SyncConfig struct {
	MaxPerProvider  int           `mapstructure:"max_per_provider"`
	ProviderDelay   time.Duration `mapstructure:"provider_delay"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RetentionDays   int           `mapstructure:"retention_days"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
}

type ProvidersConfig struct {
	Wallhaven ProviderConfig `mapstructure:"wallhaven"`
	Pixabay   ProviderConfig `mapstructure:"pixabay"`
	Pexels    ProviderConfig `mapstructure:"pexels"`
}

type ProviderConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	APIKey     string   `mapstructure:"api_key"`
	BaseURL    string   `mapstructure:"base_url"`
	Categories []string `mapstructure:"categories"`
	RPS        float64  `mapstructure:"rps"`
}

type RecommendConfig struct {
	MinPreferredCategories int     `mapstructure:"min_preferred_categories"`
	MaxResults             int     `mapstructure:"max_results"`
	RecentTagInteractions  int     `mapstructure:"recent_tag_interactions"`
	AffinityCeiling        float64 `mapstructure:"affinity_ceiling"`
	LikesCeiling           float64 `mapstructure:"likes_ceiling"`
	DownloadsCeiling       float64 `mapstructure:"downloads_ceiling"`
}

type CacheConfig struct {
	Backend string   `mapstructure:"backend"` // local or s3
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/wallfeed.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("sync.max_per_provider", 60)
	v.SetDefault("sync.provider_delay", 500*time.Millisecond)
	v.SetDefault("sync.retry_attempts", 3)
	v.SetDefault("sync.retry_base_delay", time.Second)
	v.SetDefault("sync.retention_days", 30)
	v.SetDefault("sync.request_timeout", 15*time.Second)
	v.SetDefault("sync.breaker_failures", 5)

	v.SetDefault("providers.wallhaven.enabled", true)
	v.SetDefault("providers.wallhaven.base_url", "https://wallhaven.cc/api/v1")
	v.SetDefault("providers.wallhaven.categories", []string{"nature", "space", "city", "abstract", "minimal"})
	v.SetDefault("providers.wallhaven.rps", 1.0)
	v.SetDefault("providers.pixabay.enabled", true)
	v.SetDefault("providers.pixabay.base_url", "https://pixabay.com/api")
	v.SetDefault("providers.pixabay.categories", []string{"nature", "backgrounds", "animals", "places"})
	v.SetDefault("providers.pixabay.rps", 1.0)
	v.SetDefault("providers.pexels.enabled", true)
	v.SetDefault("providers.pexels.base_url", "https://api.pexels.com/v1")
	v.SetDefault("providers.pexels.categories", []string{"nature", "city", "abstract", "dark"})
	v.SetDefault("providers.pexels.rps", 1.0)

	v.SetDefault("recommend.min_preferred_categories", 2)
	v.SetDefault("recommend.max_results", 20)
	v.SetDefault("recommend.recent_tag_interactions", 20)
	v.SetDefault("recommend.affinity_ceiling", 100.0)
	v.SetDefault("recommend.likes_ceiling", 1000.0)
	v.SetDefault("recommend.downloads_ceiling", 500.0)

	v.SetDefault("cache.backend", "local")
	v.SetDefault("cache.dir", "./data/cache")
	v.SetDefault("cache.s3.bucket", "wallfeed")
	v.SetDefault("cache.s3.region", "auto")
	v.SetDefault("cache.s3.use_ssl", true)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("providers.wallhaven.api_key", "WALLHAVEN_API_KEY")
	v.BindEnv("providers.pixabay.api_key", "PIXABAY_API_KEY")
	v.BindEnv("providers.pexels.api_key", "PEXELS_API_KEY")
	v.BindEnv("cache.s3.access_key", "S3_ACCESS_KEY")
	v.BindEnv("cache.s3.secret_key", "S3_SECRET_KEY")
	v.BindEnv("cache.s3.endpoint", "S3_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
