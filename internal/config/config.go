// Package config is the on-disk configuration of ticketscout.
package config

import (
	"errors"
	"os"
	"sort"
	"ticketscout/internal/components/ratelimit"
	"ticketscout/internal/components/telemetry"
	"ticketscout/lib/configutil"
	configlibsql "ticketscout/lib/configutil/libsql"
	"time"
)

const DefaultFile = "ticketscout.json5"

type Credentials struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
	ClientID  string `json:"client_id" yaml:"client_id"`
	AppToken  string `json:"app_token" yaml:"app_token"`
	Sandbox   bool   `json:"sandbox" yaml:"sandbox"`
}

type Scraping struct {
	Enabled *bool `json:"enabled" yaml:"enabled"`
	// MinDelayMs and MaxDelayMs bound the randomized pause between pages.
	MinDelayMs int    `json:"min_delay_ms" yaml:"min_delay_ms"`
	MaxDelayMs int    `json:"max_delay_ms" yaml:"max_delay_ms"`
	DumpDir    string `json:"dump_dir" yaml:"dump_dir"`
	// DisableBypass turns off the cloudflare transport, useful behind proxies.
	DisableBypass bool `json:"disable_bypass" yaml:"disable_bypass"`
}

type RateLimit struct {
	Requests      int `json:"requests" yaml:"requests"`
	WindowSeconds int `json:"window_seconds" yaml:"window_seconds"`
}

// Platform is the per adapter configuration, zero values fall back to the
// adapter's defaults.
type Platform struct {
	Enabled         *bool      `json:"enabled" yaml:"enabled"`
	BaseURL         string     `json:"base_url" yaml:"base_url"`
	APIURL          string     `json:"api_url" yaml:"api_url"`
	TimeoutSeconds  int        `json:"timeout" yaml:"timeout"`
	RetryAttempts   int        `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelayMs    int        `json:"retry_delay_ms" yaml:"retry_delay_ms"`
	CacheTTLSeconds int        `json:"cache_ttl" yaml:"cache_ttl"`
	Scraping        Scraping   `json:"scraping" yaml:"scraping"`
	Credentials     `json:"credentials" yaml:"credentials"`
	RateLimit       *RateLimit `json:"rate_limit" yaml:"rate_limit"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// IsEnabled defaults to true.
func (p Platform) IsEnabled() bool {
	return boolOr(p.Enabled, true)
}

// ScrapingEnabled defaults to true.
func (p Platform) ScrapingEnabled() bool {
	return boolOr(p.Scraping.Enabled, true)
}

func (p Platform) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p Platform) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelayMs) * time.Millisecond
}

func (p Platform) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

func (p Platform) MinDelay() time.Duration {
	return time.Duration(p.Scraping.MinDelayMs) * time.Millisecond
}

func (p Platform) MaxDelay() time.Duration {
	return time.Duration(p.Scraping.MaxDelayMs) * time.Millisecond
}

// BaseURLOr returns the configured base url or def.
func (p Platform) BaseURLOr(def string) string {
	if p.BaseURL == "" {
		return def
	}
	return p.BaseURL
}

// APIURLOr returns the configured api url or def.
func (p Platform) APIURLOr(def string) string {
	if p.APIURL == "" {
		return def
	}
	return p.APIURL
}

// HasCredentials reports whether every one of the named credentials is set.
func (p Platform) HasCredentials(names ...string) bool {
	values := map[string]string{
		"api_key":    p.APIKey,
		"api_secret": p.APISecret,
		"client_id":  p.ClientID,
		"app_token":  p.AppToken,
	}
	for _, name := range names {
		if values[name] == "" {
			return false
		}
	}
	return true
}

type Redis struct {
	// URL is a redis:// connection string, the in-memory store is used when
	// it is empty.
	URL    string `json:"url" yaml:"url"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

type Config struct {
	Debug     bool                `json:"debug" yaml:"debug"`
	Redis     Redis               `json:"redis" yaml:"redis"`
	Telemetry telemetry.Config    `json:"telemetry" yaml:"telemetry"`
	Database  configlibsql.Struct `json:"database" yaml:"database"`
	Platforms map[string]Platform `json:"platforms" yaml:"platforms"`
}

// Load reads the config at path (plus its .local override). The default
// file name is also searched for in parent directories. A missing file is
// not an error, the zero Config is returned.
func Load(path string) (Config, error) {
	var (
		cfg Config
		err error
	)
	if path == "" || path == DefaultFile {
		cfg, err = configutil.ReadRecursively[Config](DefaultFile)
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// Platform returns the configuration of name, the zero value if absent.
func (c Config) Platform(name string) Platform {
	return c.Platforms[name]
}

// PlatformNames returns the configured platform names, sorted.
func (c Config) PlatformNames() []string {
	out := make([]string, 0, len(c.Platforms))
	for name := range c.Platforms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RatePolicies converts the rate_limit overrides into limiter policies.
func (c Config) RatePolicies() map[string]ratelimit.Policy {
	out := map[string]ratelimit.Policy{}
	for name, p := range c.Platforms {
		if p.RateLimit == nil {
			continue
		}
		out[name] = ratelimit.Policy{
			Max:    p.RateLimit.Requests,
			Window: time.Duration(p.RateLimit.WindowSeconds) * time.Second,
		}
	}
	return out
}
