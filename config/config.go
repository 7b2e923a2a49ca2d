// Package config loads the YAML file read by the ecoboard binary and turns
// it into dashboard options.
//
// A file covering every field:
//
//	title: Datacenter Energy
//	port: 8080
//	poll_interval: 5s
//	total_capacity: 450
//
//	api:
//	  base: ${OPTIMIZER_URL:-http://localhost:5000}
//	  timeout: 10s
//	  headers:
//	    Authorization: Bearer ${OPTIMIZER_TOKEN}
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Lower bounds for the configured durations.
const (
	minPollInterval = time.Second
	minTimeout      = time.Second
)

// Defaults applied by [Parse].
const (
	DefaultPort          = 8080
	DefaultPollInterval  = 5 * time.Second
	DefaultAPIBase       = "http://localhost:5000"
	DefaultTimeout       = 10 * time.Second
	DefaultTotalCapacity = 450
)

// Config mirrors the configuration file. Build one with [Load] or [Parse];
// both fill in defaults for omitted fields.
type Config struct {
	// Title heads the dashboard page; empty means "EcoBoard".
	Title string `yaml:"title"`

	// Port the dashboard listens on.
	Port int `yaml:"port"`

	// PollInterval separates two refreshes, as a Go duration ("5s", "1500ms").
	PollInterval Duration `yaml:"poll_interval"`

	// TotalCapacity is the summed capacity of the fleet, the denominator of
	// the utilisation rate. Defaults to 450.
	TotalCapacity float64 `yaml:"total_capacity"`

	// API locates the optimisation API.
	API APIConfig `yaml:"api"`
}

// APIConfig defines the upstream optimisation API.
type APIConfig struct {
	// Base is the URL the datasets hang off: {base}/api/usage_data and so on.
	// ${VAR} and ${VAR:-default} are replaced from the environment.
	Base string `yaml:"base"`

	// Timeout bounds each dataset request.
	Timeout Duration `yaml:"timeout"`

	// Headers go out with every dataset request, e.g. Authorization.
	// Values are expanded like Base.
	Headers map[string]string `yaml:"headers"`
}

// Duration is a time.Duration written in YAML as a Go duration string.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

// Duration converts d back to a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern captures the variable name, whether ":-" was present, and the
// default that follows it.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars substitutes ${VAR} and ${VAR:-default}. A variable that is
// unset and has no default is an error.
func expandEnvVars(s string) (string, error) {
	var missing string

	out := envVarPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := envVarPattern.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok {
			return v
		}
		if m[2] != "" {
			return m[3]
		}
		if missing == "" {
			missing = m[1]
		}
		return ref
	})

	if missing != "" {
		return "", fmt.Errorf("environment variable %q is not set", missing)
	}
	return out, nil
}

// Load reads the file at path and hands it to [Parse].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, fills in defaults, expands environment
// references and validates the result. An empty document yields the
// defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.TotalCapacity == 0 {
		c.TotalCapacity = DefaultTotalCapacity
	}
	if c.API.Base == "" {
		c.API.Base = DefaultAPIBase
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(DefaultTimeout)
	}
}

func (c *Config) expand() error {
	base, err := expandEnvVars(c.API.Base)
	if err != nil {
		return fmt.Errorf("api.base: %w", err)
	}
	c.API.Base = base

	for name, value := range c.API.Headers {
		v, err := expandEnvVars(value)
		if err != nil {
			return fmt.Errorf("api.headers[%s]: %w", name, err)
		}
		c.API.Headers[name] = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if d := c.PollInterval.Duration(); d < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, d)
	}
	if c.TotalCapacity < 0 || math.IsInf(c.TotalCapacity, 0) || math.IsNaN(c.TotalCapacity) {
		return fmt.Errorf("total_capacity must be a positive number, got %v", c.TotalCapacity)
	}
	if err := validateBase(c.API.Base); err != nil {
		return fmt.Errorf("api.base: %w", err)
	}
	if d := c.API.Timeout.Duration(); d < minTimeout {
		return fmt.Errorf("api.timeout must be at least %s, got %s", minTimeout, d)
	}
	return nil
}

func validateBase(base string) error {
	u, err := url.Parse(base)
	switch {
	case err != nil:
		return fmt.Errorf("invalid url: %w", err)
	case u.Scheme == "":
		return errors.New("url must have a scheme (http:// or https://)")
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return errors.New("url must have a host")
	}
	return nil
}
