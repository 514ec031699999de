// Package config loads harvester settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/pulibrary/orangetheses/fetch"
	"github.com/pulibrary/orangetheses/helpers"
	"github.com/pulibrary/orangetheses/linkcheck"
	"github.com/pulibrary/orangetheses/locations"
	"github.com/pulibrary/orangetheses/oai"
)

// Environments.
const (
	Development = "development"
	Test        = "test"
	Production  = "production"
)

// EnvVar selects the environment section of the config file.
const EnvVar = "ORANGETHESES_ENV"

// Config holds every setting the commands pass to their components.
type Config struct {
	// Env is the selected environment
	Env string `yaml:"-"`

	Server          string `yaml:"server"`
	CommunityHandle string `yaml:"community_handle"`
	CommunityID     string `yaml:"community_id"`
	PageSize        int    `yaml:"page_size"`
	RetryLimit      int    `yaml:"retry_limit"`

	// CachePath is where the cache command writes all documents
	CachePath string `yaml:"cache_path"`

	OAIEndpoint string `yaml:"oai_endpoint"`
	OAISet      string `yaml:"oai_set"`
	ArkPrefix   string `yaml:"ark_prefix"`

	VisualsURL      string  `yaml:"visuals_url"`
	LocationsURL    string  `yaml:"locations_url"`
	LinkConcurrency int     `yaml:"link_concurrency"`
	LinkRate        float64 `yaml:"link_rate"`
}

// Default returns the production DataSpace settings.
func Default() Config {
	return Config{
		Env:             Development,
		Server:          "https://dataspace.princeton.edu/rest",
		CommunityHandle: "88435/dsp019c67wm88m",
		CommunityID:     "267",
		PageSize:        fetch.DefaultPageSize,
		RetryLimit:      5,
		CachePath:       filepath.Join(os.TempDir(), "theses.json"),
		OAIEndpoint:     oai.DefaultEndpoint,
		OAISet:          oai.DefaultSet,
		ArkPrefix:       helpers.DefaultArkPrefix,
		VisualsURL:      fetch.DefaultVisualsURL,
		LocationsURL:    locations.DefaultURL,
		LinkConcurrency: linkcheck.DefaultConcurrency,
	}
}

// Load builds the configuration: defaults, then the file's "default"
// section, then the section named by ORANGETHESES_ENV, then environment
// variable overrides. An empty path skips the file. getenv is usually
// os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if env := getenv(EnvVar); env != "" {
		cfg.Env = env
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	for _, name := range []string{"default", c.Env} {
		node, ok := sections[name]
		if !ok {
			continue
		}
		if err := node.Decode(c); err != nil {
			return fmt.Errorf("parsing config %s section %s: %w", path, name, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	stringVars := map[string]*string{
		"ORANGETHESES_SERVER":        &c.Server,
		"ORANGETHESES_COMMUNITY":     &c.CommunityHandle,
		"ORANGETHESES_COMMUNITY_ID":  &c.CommunityID,
		"FILEPATH":                   &c.CachePath,
		"ORANGETHESES_OAI_ENDPOINT":  &c.OAIEndpoint,
		"ORANGETHESES_OAI_SET":       &c.OAISet,
		"ORANGETHESES_ARK_PREFIX":    &c.ArkPrefix,
		"ORANGETHESES_VISUALS_URL":   &c.VisualsURL,
		"ORANGETHESES_LOCATIONS_URL": &c.LocationsURL,
	}
	for name, field := range stringVars {
		if v := getenv(name); v != "" {
			*field = v
		}
	}

	intVars := map[string]*int{
		"ORANGETHESES_PAGE_SIZE":        &c.PageSize,
		"ORANGETHESES_RETRY_LIMIT":      &c.RetryLimit,
		"ORANGETHESES_LINK_CONCURRENCY": &c.LinkConcurrency,
	}
	for name, field := range intVars {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = n
	}

	if v := getenv("ORANGETHESES_LINK_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ORANGETHESES_LINK_RATE: %w", err)
		}
		c.LinkRate = r
	}
	return nil
}

// Validate reports settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Server); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server %q is not an absolute URL", c.Server))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("page_size must be positive, got %d", c.PageSize))
	}
	if c.RetryLimit < 1 {
		errs = append(errs, fmt.Errorf("retry_limit must be positive, got %d", c.RetryLimit))
	}
	if c.LinkConcurrency < 1 {
		errs = append(errs, fmt.Errorf("link_concurrency must be positive, got %d", c.LinkConcurrency))
	}
	if c.LinkRate < 0 {
		errs = append(errs, fmt.Errorf("link_rate must not be negative, got %g", c.LinkRate))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Fetch returns the REST fetcher settings.
func (c Config) Fetch() fetch.Config {
	retry := fetch.DefaultRetryPolicy()
	retry.MaxAttempts = c.RetryLimit
	return fetch.Config{
		BaseURL:         c.Server,
		CommunityHandle: c.CommunityHandle,
		CommunityID:     c.CommunityID,
		PageSize:        c.PageSize,
		Retry:           retry,
	}
}
