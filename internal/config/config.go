// Package config loads and validates the harvester configuration from
// a YAML file and JOBHARVESTER_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration tree.
type Config struct {
	Search   SearchConfig   `mapstructure:"search"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SearchConfig is what to look for.
type SearchConfig struct {
	Keywords string `mapstructure:"keywords"`
	Location string `mapstructure:"location"`
	MaxJobs  int    `mapstructure:"max_jobs"`
}

// CrawlConfig shapes pagination and politeness.
type CrawlConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	DetailURLPrefix string `mapstructure:"detail_url_prefix"`
	PageSize        int    `mapstructure:"page_size"`
	MinDelayMs      int    `mapstructure:"min_delay_ms"`
	MaxDelayMs      int    `mapstructure:"max_delay_ms"`
	UserAgent       string `mapstructure:"user_agent"`
}

// HTTPConfig shapes the fetch client's retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
}

// LedgerConfig selects and configures the ledger store.
type LedgerConfig struct {
	Provider   string `mapstructure:"provider"`
	DSN        string `mapstructure:"dsn"`
	Table      string `mapstructure:"table"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// SnapshotConfig selects and configures the snapshot sink.
type SnapshotConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// NotifyConfig selects and configures the run notifier.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// OpsConfig controls the health/metrics HTTP listener.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig controls log output shape.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Default returns the configuration with every default applied and no
// validation. Callers fill in the required search fields before use.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads the config file at path, applies environment overrides,
// and validates the result. Path may be empty; defaults and environment
// alone are enough to run with the memory ledger.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOBHARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.keywords", "")
	v.SetDefault("search.location", "")
	v.SetDefault("search.max_jobs", 100)

	v.SetDefault("crawl.base_url", "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search")
	v.SetDefault("crawl.detail_url_prefix", "https://www.linkedin.com/jobs/view/")
	v.SetDefault("crawl.page_size", 25)
	v.SetDefault("crawl.min_delay_ms", 2000)
	v.SetDefault("crawl.max_delay_ms", 5000)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.backoff_initial_ms", 500)

	v.SetDefault("ledger.provider", "memory")
	v.SetDefault("ledger.table", "ledger_rows")
	v.SetDefault("ledger.collection", "ledger_rows")

	v.SetDefault("snapshot.provider", "file")
	v.SetDefault("snapshot.dir", "snapshots")

	v.SetDefault("notify.provider", "discard")

	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.port", 8080)

	v.SetDefault("logging.development", false)
}

// Validate checks cross-field requirements that defaults cannot cover.
func (c *Config) Validate() error {
	if c.Search.Keywords == "" {
		return fmt.Errorf("search.keywords is required")
	}
	if c.Search.MaxJobs <= 0 {
		return fmt.Errorf("search.max_jobs must be positive")
	}
	if c.Crawl.PageSize <= 0 {
		return fmt.Errorf("crawl.page_size must be positive")
	}
	if c.Crawl.MaxDelayMs > 0 && c.Crawl.MinDelayMs > c.Crawl.MaxDelayMs {
		return fmt.Errorf("crawl.min_delay_ms exceeds crawl.max_delay_ms")
	}

	switch c.Ledger.Provider {
	case "memory":
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres provider")
		}
	case "mongo":
		if c.Ledger.URI == "" || c.Ledger.Database == "" {
			return fmt.Errorf("ledger.uri and ledger.database are required for the mongo provider")
		}
	default:
		return fmt.Errorf("unknown ledger provider %q", c.Ledger.Provider)
	}

	switch c.Snapshot.Provider {
	case "discard":
	case "file":
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir is required for the file provider")
		}
	case "gcs":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown snapshot provider %q", c.Snapshot.Provider)
	}

	switch c.Notify.Provider {
	case "discard", "memory":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id are required for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown notify provider %q", c.Notify.Provider)
	}

	if c.Ops.Enabled && (c.Ops.Port <= 0 || c.Ops.Port > 65535) {
		return fmt.Errorf("ops.port must be a valid port")
	}
	return nil
}

// HTTPTimeout is the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial is the first retry delay.
func (c *Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// MinDelay is the lower bound of the between-page pause.
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.Crawl.MinDelayMs) * time.Millisecond
}

// MaxDelay is the upper bound of the between-page pause.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.Crawl.MaxDelayMs) * time.Millisecond
}
