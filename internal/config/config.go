// Package config loads the addon configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/models"
)

// Environment variable names
const (
	EnvSiteBase          = "SVETSERIALU_BASE"
	EnvLoginEmail        = "SVETSERIALU_LOGIN_EMAIL"
	EnvLoginPassword     = "SVETSERIALU_LOGIN_PASSWORD"
	EnvAddonPort         = "PORT"
	EnvProxyPort         = "PORT_PROXY"
	EnvProxyPublicURL    = "PROXY_PUBLIC_URL"
	EnvLogLevel          = "LOG_LEVEL"
	EnvCacheTTL          = "CACHE_TTL"
	EnvLoginStrategy     = "LOGIN_STRATEGY"
	EnvLoginInterval     = "LOGIN_INTERVAL"
	EnvBrowserHeadless   = "BROWSER_HEADLESS"
	EnvBrowserExecutable = "BROWSER_EXECUTABLE_PATH"
	EnvMetadataBase      = "METADATA_BASE"
	EnvDisabledHosters   = "DISABLED_HOSTERS"
)

const (
	DefaultSiteBase      = "https://svetserialu.io"
	DefaultMetadataBase  = "https://www.imdb.com"
	DefaultAddonPort     = 10000
	DefaultProxyPort     = 7160
	DefaultCacheTTL      = 5 * time.Minute
	DefaultLoginInterval = 10 * time.Minute
)

// Login strategies
const (
	LoginForm    = "form"
	LoginBrowser = "browser"
)

// ErrMissingCredentials is reported when login identity or secret is unset
var ErrMissingCredentials = errors.New("login credentials are not configured")

// Config is the runtime configuration consumed by the pipeline
type Config struct {
	SiteBase          string
	MetadataBase      string
	LoginEmail        string
	LoginPassword     string
	LoginStrategy     string
	LoginInterval     time.Duration
	AddonPort         int
	ProxyPort         int
	ProxyPublicURL    string
	LogLevel          string
	CacheTTL          time.Duration
	BrowserHeadless   bool
	BrowserExecutable string
	DisabledHosters   []models.HosterKind
}

// Load reads an optional .env file and then the process environment.
// Only presence is validated; malformed values fall back to defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		fmt.Fprintf(os.Stderr, "config: ignoring .env: %v\n", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function
func FromLookup(lookup func(string) (string, bool)) *Config {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		SiteBase:          strings.TrimRight(get(EnvSiteBase, DefaultSiteBase), "/"),
		MetadataBase:      strings.TrimRight(get(EnvMetadataBase, DefaultMetadataBase), "/"),
		LoginEmail:        get(EnvLoginEmail, ""),
		LoginPassword:     get(EnvLoginPassword, ""),
		LoginStrategy:     strings.ToLower(get(EnvLoginStrategy, LoginForm)),
		LoginInterval:     parseDuration(get(EnvLoginInterval, ""), DefaultLoginInterval),
		AddonPort:         parsePort(get(EnvAddonPort, ""), DefaultAddonPort),
		ProxyPort:         parsePort(get(EnvProxyPort, ""), DefaultProxyPort),
		LogLevel:          get(EnvLogLevel, "info"),
		CacheTTL:          parseDuration(get(EnvCacheTTL, ""), DefaultCacheTTL),
		BrowserHeadless:   parseBool(get(EnvBrowserHeadless, ""), true),
		BrowserExecutable: get(EnvBrowserExecutable, ""),
		DisabledHosters:   parseHosters(get(EnvDisabledHosters, string(models.HosterFileMoon))),
	}
	if cfg.LoginStrategy != LoginBrowser {
		cfg.LoginStrategy = LoginForm
	}
	cfg.ProxyPublicURL = strings.TrimRight(get(EnvProxyPublicURL, fmt.Sprintf("http://localhost:%d", cfg.ProxyPort)), "/")
	return cfg
}

// HasCredentials reports whether both login fields are present
func (c *Config) HasCredentials() bool {
	return c.LoginEmail != "" && c.LoginPassword != ""
}

// CheckCredentials returns ErrMissingCredentials when login is impossible
func (c *Config) CheckCredentials() error {
	if !c.HasCredentials() {
		return ErrMissingCredentials
	}
	return nil
}

func parsePort(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return def
	}
	return n
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	// bare numbers are milliseconds, like the original TTL setting
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return def
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseHosters(s string) []models.HosterKind {
	var out []models.HosterKind
	for _, part := range strings.Split(s, ",") {
		if kind, ok := models.ParseHosterKind(part); ok {
			out = append(out, kind)
		}
	}
	return out
}
