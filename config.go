package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "500ms" or "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("pipeline: parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// StateConfig selects and configures the run-state store backend.
type StateConfig struct {
	// Backend is one of "file", "memory", "redis", "postgres", "mongo".
	Backend string `yaml:"backend"`

	// Dir is the state directory for the file backend.
	Dir string `yaml:"dir"`

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// PostgresURL is the connection URL for the postgres backend.
	PostgresURL string `yaml:"postgres_url"`

	// MongoURI and MongoDatabase configure the mongo backend.
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// ServiceConfig holds the base URLs of the collaborator services.
type ServiceConfig struct {
	DiscoveryURL string `yaml:"discovery_url"`
	RefineURL    string `yaml:"refine_url"`
	MetadataURL  string `yaml:"metadata_url"`
	PredictorURL string `yaml:"predictor_url"`
	AssemblyURL  string `yaml:"assembly_url"`
	PublishURL   string `yaml:"publish_url"`
}

// SelectionConfig holds the candidate-selection thresholds. All
// thresholds are static configuration; selection is a single-pass greedy
// filter, not an optimizing search.
type SelectionConfig struct {
	// MinSearchResults is the minimum number of raw search hits a query
	// must produce before feature extraction is attempted.
	MinSearchResults int `yaml:"min_search_results"`

	// MinQualifyingCount is the minimum number of items surviving the
	// format filter.
	MinQualifyingCount int `yaml:"min_qualifying_count"`

	// MinPredictedThreshold drops items whose predicted metric falls
	// below it.
	MinPredictedThreshold float64 `yaml:"min_predicted_threshold"`

	// MinQualifiedVideos is the minimum number of candidates that must
	// survive the predicted-metric cut for a query to be accepted.
	MinQualifiedVideos int `yaml:"min_qualified_videos"`

	// TopK caps the accepted candidate set.
	TopK int `yaml:"top_k"`

	// SearchLimit caps the raw search result size.
	SearchLimit int `yaml:"search_limit"`

	// RecencyWindowDays bounds how old a search hit may be.
	RecencyWindowDays int `yaml:"recency_window_days"`

	// ShortFormOnly keeps only short-form items during the format filter.
	ShortFormOnly bool `yaml:"short_form_only"`
}

// RetryConfig bounds the backoff applied to transient collaborator
// failures.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
}

// Config holds configuration for a pipeline process.
type Config struct {
	// Regions are the target markets, in processing order.
	Regions []string `yaml:"regions"`

	// SlotsPerRegion is the number of production units scheduled per
	// region per run.
	SlotsPerRegion int `yaml:"slots_per_region"`

	// WorkRoot is the root directory for per-slot working areas.
	WorkRoot string `yaml:"work_root"`

	// DiscoveryWindowDays is the trend-discovery lookback window.
	DiscoveryWindowDays int `yaml:"discovery_window_days"`

	// MaxVariants caps how many refined query variants are tried per
	// keyword.
	MaxVariants int `yaml:"max_variants"`

	// AssembleTimeout is the hard per-call timeout for asset assembly.
	// On expiry the call is aborted and the job fails terminally: a
	// remote partially-produced artifact makes blind retry unsafe.
	AssembleTimeout Duration `yaml:"assemble_timeout"`

	// PublishEnabled gates publishing per region. Absent regions are
	// disabled.
	PublishEnabled map[string]bool `yaml:"publish_enabled"`

	State     StateConfig     `yaml:"state"`
	Services  ServiceConfig   `yaml:"services"`
	Selection SelectionConfig `yaml:"selection"`
	Retry     RetryConfig     `yaml:"retry"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Regions:             []string{"KR", "US", "MX"},
		SlotsPerRegion:      3,
		WorkRoot:            "work",
		DiscoveryWindowDays: 7,
		MaxVariants:         5,
		AssembleTimeout:     Duration(10 * time.Minute),
		PublishEnabled:      map[string]bool{},
		State: StateConfig{
			Backend: "file",
			Dir:     "state",
		},
		Selection: SelectionConfig{
			MinSearchResults:      4,
			MinQualifyingCount:    3,
			MinPredictedThreshold: 10000,
			MinQualifiedVideos:    3,
			TopK:                  4,
			SearchLimit:           50,
			RecencyWindowDays:     7,
			ShortFormOnly:         true,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   Duration(500 * time.Millisecond),
			MaxDelay:    Duration(8 * time.Second),
		},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("pipeline: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("pipeline: parse config: %w", err)
	}
	return cfg, nil
}
