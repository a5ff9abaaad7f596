package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"github.com/starford/glanxiv/internal/corpus"
)

// Corpus source kinds.
const (
	SourceFiles  = "files"
	SourceSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Corpus   CorpusConfig      `yaml:"corpus"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Taxonomy TaxonomyConfig    `yaml:"taxonomy"`
	Query    QueryConfig       `yaml:"query"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return c.Query.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CorpusConfig controls where papers come from and how long a loaded
// snapshot is served before it is refreshed.
//
// Source selects the backing store:
//   - "files" (default): parse the YYYY-MM-DD.json partitions in SnapshotDir.
//   - "sqlite": read the relational import kept in sync with SnapshotDir.
type CorpusConfig struct {
	Source       string        `yaml:"source"`
	SnapshotDir  string        `yaml:"snapshot_dir"`
	TTL          time.Duration `yaml:"ttl"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	FetchWorkers int           `yaml:"fetch_workers"`
	Watch        bool          `yaml:"watch"`
	WarmSchedule string        `yaml:"warm_schedule"`
	IDFallback   string        `yaml:"id_fallback"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	if c.Source == "" {
		c.Source = SourceFiles
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(SourceFiles, SourceSQLite)),
		validation.Field(&c.SnapshotDir, validation.Required),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.FetchTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.FetchWorkers, validation.Min(0)),
		validation.Field(&c.WarmSchedule, validation.By(cronSpec)),
		validation.Field(&c.IDFallback, validation.By(idFallback)),
	)
}

func cronSpec(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

func idFallback(v any) error {
	s, _ := v.(string)
	_, err := corpus.ParseIDFallback(s)
	return err
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// TaxonomyConfig optionally replaces the built-in category tree with a YAML
// file. An empty Path keeps the built-in tree.
type TaxonomyConfig struct {
	Path string `yaml:"path"`
}

// QueryConfig holds search defaults.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// Validate validates the query configuration.
func (c *QueryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Required, validation.Min(1), validation.Max(500)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Corpus: CorpusConfig{
			Source:       SourceFiles,
			SnapshotDir:  "./scraping/daily",
			TTL:          corpus.DefaultTTL,
			FetchTimeout: corpus.DefaultFetchTimeout,
			FetchWorkers: corpus.DefaultFetchWorkers,
			Watch:        true,
			IDFallback:   string(corpus.IDRandom),
		},
		SQLite: SQLiteConfig{
			Path: "./glanxiv.db",
		},
		Query: QueryConfig{
			DefaultLimit: 12,
		},
	}
}
