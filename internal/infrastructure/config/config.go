package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/paths"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// envPrefix namespaces all launcher environment variables (LAUNCHER_*).
const envPrefix = "launcher"

// Config holds all launcher daemon configuration.
type Config struct {
	Server    ServerConfig
	Agent     AgentConfig
	Emulator  EmulatorConfig
	Browser   BrowserConfig
	Native    NativeConfig
	Catalog   CatalogConfig
	Discovery DiscoveryConfig
	Poll      PollConfig
	Dedup     DedupConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8100"`
	Host           string   `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// TerminateOnStop closes every live instance during daemon shutdown.
	// Kiosks that restart the daemon under running apps leave it off.
	TerminateOnStop bool `envconfig:"TERMINATE_ON_STOP" default:"false"`
}

// AgentConfig holds window-agent client configuration. The agent is the
// OS-side sidecar that owns real window-system calls.
type AgentConfig struct {
	URL     string        `envconfig:"AGENT_URL" default:"http://localhost:8190"`
	Timeout time.Duration `envconfig:"AGENT_TIMEOUT" default:"2s"`
	Retries int           `envconfig:"AGENT_RETRIES" default:"2"`
	Enabled bool          `envconfig:"AGENT_ENABLED" default:"true"`
}

// EmulatorConfig holds emulator host configuration for emulated apps.
type EmulatorConfig struct {
	HealthAddr  string        `envconfig:"EMULATOR_HEALTH_ADDR" default:"localhost:8195"`
	Command     string        `envconfig:"EMULATOR_COMMAND" default:""`
	WindowClass string        `envconfig:"EMULATOR_WINDOW_CLASS" default:"EmulatorHost"`
	HealthWait  time.Duration `envconfig:"EMULATOR_HEALTH_WAIT" default:"3s"`
	Enabled     bool          `envconfig:"EMULATOR_ENABLED" default:"false"`
}

// BrowserConfig holds the dedicated browser used for app-mode web windows.
// An empty command disables app-mode launches; URLs then open in the
// default browser.
type BrowserConfig struct {
	Command string   `envconfig:"BROWSER_COMMAND" default:""`
	Args    []string `envconfig:"BROWSER_ARGS" default:""`
}

// NativeConfig holds native process launch configuration.
type NativeConfig struct {
	// AppDirs are searched when a catalog path is a bare executable name
	AppDirs       []string      `envconfig:"NATIVE_APP_DIRS" default:""`
	TerminateWait time.Duration `envconfig:"NATIVE_TERMINATE_WAIT" default:"3s"` // Grace between polite close and kill
}

// CatalogConfig holds application catalog configuration.
type CatalogConfig struct {
	Dir       string        `envconfig:"CATALOG_DIR" default:"/var/lib/launcher/catalog"`
	RemoteURL string        `envconfig:"CATALOG_REMOTE_URL" default:""`
	Refresh   time.Duration `envconfig:"CATALOG_REFRESH" default:"5m"`
	Watch     bool          `envconfig:"CATALOG_WATCH" default:"true"`
}

// DiscoveryConfig holds window-discovery retry configuration.
type DiscoveryConfig struct {
	InitialBackoff time.Duration `envconfig:"DISCOVERY_INITIAL_BACKOFF" default:"100ms"`
	MaxBackoff     time.Duration `envconfig:"DISCOVERY_MAX_BACKOFF" default:"1s"`
	MaxConcurrent  int           `envconfig:"DISCOVERY_MAX_CONCURRENT" default:"8"`

	// Non-content windows excluded from correlation (host chrome, hidden
	// tool windows). Empty by default; kiosk operators list their shell's
	// own window titles and classes here.
	DenyTitles  []string `envconfig:"DISCOVERY_DENY_TITLES" default:""`
	DenyClasses []string `envconfig:"DISCOVERY_DENY_CLASSES" default:""`

	// Per-category window_init timeouts; catalog records may override per app
	NativeTimeout   time.Duration `envconfig:"DISCOVERY_NATIVE_TIMEOUT" default:"5s"`
	WebTimeout      time.Duration `envconfig:"DISCOVERY_WEB_TIMEOUT" default:"15s"`
	EmbeddedTimeout time.Duration `envconfig:"DISCOVERY_EMBEDDED_TIMEOUT" default:"3s"`
	EmulatedTimeout time.Duration `envconfig:"DISCOVERY_EMULATED_TIMEOUT" default:"30s"`
}

// WindowInitTimeout returns the discovery deadline for an application,
// honoring the per-app override before the category default.
func (d DiscoveryConfig) WindowInitTimeout(app types.Application) time.Duration {
	if app.WindowTimeoutMS > 0 {
		return time.Duration(app.WindowTimeoutMS) * time.Millisecond
	}
	switch app.Category {
	case types.CategoryNative:
		return d.NativeTimeout
	case types.CategoryWeb:
		return d.WebTimeout
	case types.CategoryEmbedded:
		return d.EmbeddedTimeout
	case types.CategoryEmulated:
		return d.EmulatedTimeout
	default:
		return d.NativeTimeout
	}
}

// PollConfig holds background liveness poller configuration.
type PollConfig struct {
	Interval    time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	Concurrency int           `envconfig:"POLL_CONCURRENCY" default:"4"`
	Enabled     bool          `envconfig:"POLL_ENABLED" default:"true"`
}

// Dedup cross-user policies
const (
	CrossUserDeny   = "deny"   // Different user's relaunch fails with already-running
	CrossUserSwitch = "switch" // Shared kiosk: any user's relaunch switches to the live instance
)

// DedupConfig holds single-instance dedup configuration.
type DedupConfig struct {
	CrossUser string `envconfig:"DEDUP_CROSS_USER" default:"deny"`
	PerUser   bool   `envconfig:"DEDUP_PER_USER" default:"false"` // Scope dedup keys to the launching user
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	File        string `envconfig:"LOG_FILE" default:""`
	MaxSizeMB   int    `envconfig:"LOG_MAX_SIZE_MB" default:"20"`
	MaxBackups  int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	Compress    bool   `envconfig:"LOG_COMPRESS" default:"true"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from LAUNCHER_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8100",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Agent: AgentConfig{
			URL:     "http://localhost:8190",
			Timeout: 2 * time.Second,
			Retries: 2,
			Enabled: true,
		},
		Emulator: EmulatorConfig{
			HealthAddr:  "localhost:8195",
			WindowClass: "EmulatorHost",
			HealthWait:  3 * time.Second,
			Enabled:     false,
		},
		Native: NativeConfig{
			TerminateWait: 3 * time.Second,
		},
		Catalog: CatalogConfig{
			Dir:     paths.Catalog,
			Refresh: 5 * time.Minute,
			Watch:   true,
		},
		Discovery: DiscoveryConfig{
			InitialBackoff:  100 * time.Millisecond,
			MaxBackoff:      time.Second,
			MaxConcurrent:   8,
			NativeTimeout:   5 * time.Second,
			WebTimeout:      15 * time.Second,
			EmbeddedTimeout: 3 * time.Second,
			EmulatedTimeout: 30 * time.Second,
		},
		Poll: PollConfig{
			Interval:    2 * time.Second,
			Concurrency: 4,
			Enabled:     true,
		},
		Dedup: DedupConfig{
			CrossUser: CrossUserDeny,
		},
		Logging: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
			Compress:   true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Dedup.CrossUser != CrossUserDeny && c.Dedup.CrossUser != CrossUserSwitch {
		return fmt.Errorf("invalid dedup cross-user policy %q (want %q or %q)",
			c.Dedup.CrossUser, CrossUserDeny, CrossUserSwitch)
	}
	if c.Discovery.InitialBackoff <= 0 || c.Discovery.MaxBackoff < c.Discovery.InitialBackoff {
		return fmt.Errorf("invalid discovery backoff bounds [%s, %s]",
			c.Discovery.InitialBackoff, c.Discovery.MaxBackoff)
	}
	if c.Discovery.MaxConcurrent < 1 {
		return fmt.Errorf("discovery max concurrent must be at least 1, got %d", c.Discovery.MaxConcurrent)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.Concurrency < 1 {
		return fmt.Errorf("poll concurrency must be at least 1, got %d", c.Poll.Concurrency)
	}
	return nil
}
