package file

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEXSYNC"

// ConfigFile is the name of the config file in the lexsync home directory.
const ConfigFile = "config.toml"

// Config is the resolved configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Normattiva NormattivaConfig `mapstructure:"normattiva"`
	EurLex     EurLexConfig     `mapstructure:"eurlex"`
	Store      StoreConfig      `mapstructure:"store"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// File is the config file that was read, empty when none was.
	File string `mapstructure:"-"`
}

// CatalogConfig points at an operator source file merged over the
// built-in catalog.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// HTTPConfig is shared by both connectors.
type HTTPConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
}

// NormattivaConfig configures the Normattiva open-data API.
type NormattivaConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PollAttempts int           `mapstructure:"poll_attempts"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// EurLexConfig configures the Publications Office endpoints.
type EurLexConfig struct {
	SPARQLEndpoint string `mapstructure:"sparql_endpoint"`
	Language       string `mapstructure:"language"`
	MinBodySize    int    `mapstructure:"min_body_size"`
}

// StoreConfig configures batched writes.
type StoreConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

// EmbeddingConfig configures the embedding provider. Embeddings are
// skipped when APIKey is empty.
type EmbeddingConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// CacheConfig sizes the resolved-identifier cache.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// MetricsConfig names the Prometheus textfile written after each command.
// Empty disables the export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// SetDefaults registers the default value of every key. Keys without a
// default are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "")
	v.SetDefault("catalog.file", "")

	v.SetDefault("http.user_agent", "lexsync/1.0")
	v.SetDefault("http.timeout", 2*time.Minute)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.retry_base_delay", 2*time.Second)
	v.SetDefault("http.request_interval", time.Second)

	v.SetDefault("normattiva.base_url", "https://api.normattiva.it/t/normattiva.api/bff-opendata/v1/api/v1")
	v.SetDefault("normattiva.poll_attempts", 30)
	v.SetDefault("normattiva.poll_interval", 3*time.Second)

	v.SetDefault("eurlex.sparql_endpoint", "https://publications.europa.eu/webapi/rdf/sparql")
	v.SetDefault("eurlex.language", "it")
	v.SetDefault("eurlex.min_body_size", 500)

	v.SetDefault("store.batch_size", 50)
	v.SetDefault("store.batch_delay", 2*time.Second)

	v.SetDefault("embedding.base_url", "https://api.voyageai.com/v1")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "voyage-law-2")
	v.SetDefault("embedding.dimensions", 1024)

	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", time.Duration(0))

	v.SetDefault("metrics.textfile", "")
}

// Load resolves the configuration. An explicit path must exist; without
// one, ~/.lexsync/config.toml is read when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "VOYAGE_API_KEY"); err != nil {
		return nil, errors.Wrap(err, "bind embedding key")
	}
	SetDefaults(v)

	file := path
	if file == "" {
		file = defaultFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, "read config %s", file),
				"check the TOML syntax, or pass --config with another file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.File = file
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, errors.Mark(errors.Newf(format, args...), domain.ErrInvalidInput))
	}
	if c.Store.BatchSize < 0 {
		invalid("store.batch_size must not be negative, got %d", c.Store.BatchSize)
	}
	if c.HTTP.Timeout < 0 {
		invalid("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.Normattiva.PollAttempts < 0 {
		invalid("normattiva.poll_attempts must not be negative, got %d", c.Normattiva.PollAttempts)
	}
	if c.Cache.Size < 0 {
		invalid("cache.size must not be negative, got %d", c.Cache.Size)
	}
	if c.EurLex.Language != "" && len(c.EurLex.Language) != 2 {
		invalid("eurlex.language must be a two-letter code, got %q", c.EurLex.Language)
	}
	return errors.Join(errs...)
}

// defaultFile returns ~/.lexsync/config.toml when it exists.
func defaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	file := filepath.Join(home, ".lexsync", ConfigFile)
	if _, err := os.Stat(file); err != nil {
		return ""
	}
	return file
}
