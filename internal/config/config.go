// Package config loads review-latency settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPhabricatorURL = "https://phabricator.services.mozilla.com"
	DefaultStorePath      = "data/revisions.db"
	DefaultWorkers        = 8
)

// Config is the full set of settings shared by all commands
type Config struct {
	Phabricator PhabricatorConfig `yaml:"phabricator"`
	GitHub      GitHubConfig      `yaml:"github"`
	Store       StoreConfig       `yaml:"store"`
	Cache       CacheConfig       `yaml:"cache"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Workers     int               `yaml:"workers"`
}

type PhabricatorConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type GitHubConfig struct {
	Token string `yaml:"token"`
	// Denylist holds logins whose PRs and reviews are ignored (bots, service accounts)
	Denylist []string `yaml:"denylist"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	// Dir is the cache directory; empty means the OS user cache directory
	Dir      string `yaml:"dir"`
	Disabled bool   `yaml:"disabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	// GCPProject, when set, also sends diagnostics to Cloud Logging in that project
	GCPProject string `yaml:"gcp_project"`
}

type MetricsConfig struct {
	// Textfile is where prometheus metrics are written after a run, if set
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Phabricator: PhabricatorConfig{URL: DefaultPhabricatorURL},
		Store:       StoreConfig{Path: DefaultStorePath},
		Log:         LogConfig{Level: "info"},
		Workers:     DefaultWorkers,
	}
}

// Load reads path on top of the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PHABRICATOR_URL"); ok && v != "" {
		c.Phabricator.URL = v
	}
	if v, ok := lookup("PHABRICATOR_TOKEN"); ok && v != "" {
		c.Phabricator.Token = v
	}
	if v, ok := lookup("GITHUB_TOKEN"); ok && v != "" {
		c.GitHub.Token = v
	}
}

// Validate checks values that would otherwise fail late
func (c Config) Validate() error {
	var errs []error

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if c.Phabricator.URL != "" {
		u, err := url.Parse(c.Phabricator.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid phabricator url %q", c.Phabricator.URL))
		}
	}

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store path must not be empty"))
	}

	return errors.Join(errs...)
}
