package ontoenv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ResolutionPolicy selects how the Resolver picks among multiple graphs that
// share an ontology IRI, per spec §4.4.
type ResolutionPolicy string

const (
	PolicyDefault ResolutionPolicy = "default"
	PolicyLatest  ResolutionPolicy = "latest"
	PolicyVersion ResolutionPolicy = "version"
)

// Config is the persisted environment configuration (spec §6 config.json).
type Config struct {
	Locations []string `json:"locations,omitempty" mapstructure:"locations"`

	Includes []string `json:"includes,omitempty" mapstructure:"includes"`
	Excludes []string `json:"excludes,omitempty" mapstructure:"excludes"`

	IncludeOntologies []string `json:"include_ontologies,omitempty" mapstructure:"include_ontologies"`
	ExcludeOntologies []string `json:"exclude_ontologies,omitempty" mapstructure:"exclude_ontologies"`

	RequireOntologyNames bool `json:"require_ontology_names" mapstructure:"require_ontology_names"`
	Strict               bool `json:"strict" mapstructure:"strict"`
	Offline              bool `json:"offline" mapstructure:"offline"`

	ResolutionPolicy ResolutionPolicy `json:"resolution_policy,omitempty" mapstructure:"resolution_policy"`

	RemoteCacheTTLSecs int64 `json:"remote_cache_ttl_secs" mapstructure:"remote_cache_ttl_secs"`

	UseCachedOntologies bool `json:"use_cached_ontologies" mapstructure:"use_cached_ontologies"`
	NoSearch            bool `json:"no_search" mapstructure:"no_search"`

	// HTTPTimeoutSecs bounds each remote fetch, per spec §5 "Timeouts".
	HTTPTimeoutSecs int64 `json:"http_timeout_secs,omitempty" mapstructure:"http_timeout_secs"`
	// LockTimeoutSecs bounds the lock-acquisition retry window, per spec §5.
	LockTimeoutSecs int64 `json:"lock_timeout_secs,omitempty" mapstructure:"lock_timeout_secs"`
}

// DefaultConfig returns the documented defaults (spec §6).
func DefaultConfig() Config {
	return Config{
		Includes:           []string{"*.ttl", "*.xml", "*.n3"},
		ResolutionPolicy:   PolicyDefault,
		RemoteCacheTTLSecs: 86400,
		HTTPTimeoutSecs:    30,
		LockTimeoutSecs:    10,
	}
}

// Validate checks enum fields and non-negative durations.
func (c *Config) Validate() error {
	switch c.ResolutionPolicy {
	case "", PolicyDefault, PolicyLatest, PolicyVersion:
	default:
		return fmt.Errorf("invalid resolution_policy %q (want default, latest or version)", c.ResolutionPolicy)
	}
	if c.RemoteCacheTTLSecs < 0 {
		return fmt.Errorf("remote_cache_ttl_secs must be non-negative")
	}
	if c.HTTPTimeoutSecs < 0 || c.LockTimeoutSecs < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	return nil
}

// LoadConfig reads config.json from dir, layering ONTOENV_* environment
// variable overrides on top via viper, mirroring the file+env merge the
// reference stack uses for its own service configuration.
func LoadConfig(dir string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("ONTOENV")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	} else {
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save persists the config as config.json under dir.
func (c Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}
