package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

// Config is read from the environment. When CONFIG_FILE names a YAML file it is read
// first and environment variables override it. Secrets only come from the environment.
type Config struct {
	AppEnv      string `yaml:"app_env" env:"APP_ENV" env-default:"prod"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr    string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:":9100"`

	// Store
	StoreDriver string `yaml:"store_driver" env:"STORE_DRIVER" env-default:"mysql"` // mysql|postgres|sqlite
	StoreDSN    string `yaml:"-" env:"STORE_DSN" env-default:"root:root@tcp(localhost:3306)/bank_reviews?parseTime=true&charset=utf8mb4&loc=UTC"`

	// Cache
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPass string        `yaml:"-" env:"REDIS_PASSWORD"`
	RedisDB   int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	CacheTTL  time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"15m"`

	// Review feed
	FeedBase string  `yaml:"feed_base_url" env:"FEED_BASE_URL" env-default:"http://localhost:8090/v1"`
	FeedKey  string  `yaml:"-" env:"FEED_API_KEY"`
	FeedRPS  float64 `yaml:"feed_rps" env:"FEED_RPS" env-default:"5"`

	// Pipeline
	Workers       int    `yaml:"ingest_workers" env:"INGEST_WORKERS" env-default:"3"`
	ReviewCount   int    `yaml:"ingest_review_count" env:"INGEST_REVIEW_COUNT" env-default:"400"`
	BatchSize     int    `yaml:"load_batch_size" env:"LOAD_BATCH_SIZE" env-default:"500"`
	LoadWorkers   int    `yaml:"load_workers" env:"LOAD_WORKERS" env-default:"1"`
	EnrichWorkers int    `yaml:"enrich_workers" env:"ENRICH_WORKERS" env-default:"8"`
	KeywordsTopN  int    `yaml:"keywords_top_n" env:"KEYWORDS_TOP_N" env-default:"5"`
	MinTextLength int    `yaml:"min_text_length" env:"MIN_TEXT_LENGTH" env-default:"3"`
	ThemeCatalog  string `yaml:"theme_catalog" env:"THEME_CATALOG"`
	SourcesFile   string `yaml:"sources_file" env:"SOURCES_FILE"`
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	var c Config
	var err error
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		err = cleanenv.ReadConfig(path, &c)
	} else {
		err = cleanenv.ReadEnv(&c)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	if c.FeedKey == "" {
		log.Warn().Msg("FEED_API_KEY is empty")
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("STORE_DRIVER %q: want mysql, postgres or sqlite", c.StoreDriver)
	}
	if c.Workers < 1 || c.LoadWorkers < 1 || c.EnrichWorkers < 1 {
		return fmt.Errorf("worker counts must be positive")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("LOAD_BATCH_SIZE must be positive")
	}
	return nil
}
