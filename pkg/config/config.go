// Package config loads service configuration from a YAML file with
// TOAST_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full configuration for the automation service.
type Config struct {
	Browser     BrowserConfig     `mapstructure:"browser"`
	Sessions    SessionConfig     `mapstructure:"sessions"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Toast       ToastConfig       `mapstructure:"toast"`
	Semantic    SemanticConfig    `mapstructure:"semantic"`
	Healing     HealingConfig     `mapstructure:"healing"`
	GoldenCopy  GoldenCopyConfig  `mapstructure:"golden_copy"`
	LogDir      string            `mapstructure:"log_dir"`
}

// BrowserConfig controls the shared browser process and context defaults.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	ViewportWidth     int           `mapstructure:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height"`
	Locale            string        `mapstructure:"locale"`
	Timezone          string        `mapstructure:"timezone"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
}

// SessionConfig controls session persistence and locking.
type SessionConfig struct {
	StorageDir    string        `mapstructure:"storage_dir"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
}

// DiagnosticsConfig controls the passive page observers.
type DiagnosticsConfig struct {
	// WatchDomains are glob patterns; only requests whose host matches one
	// of these are logged.
	WatchDomains []string `mapstructure:"watch_domains"`
	// AuthPaths are URL substrings whose responses are logged in detail.
	AuthPaths []string `mapstructure:"auth_paths"`
	// ScreenshotDir receives error-evidence screenshots taken during jobs.
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

// ToastConfig holds the back-office entry points.
type ToastConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Destinations maps logical navigation names to URL paths.
	Destinations map[string]string `mapstructure:"destinations"`
	// LoginURLMarkers identify a login/auth page by URL substring.
	LoginURLMarkers []string `mapstructure:"login_url_markers"`
}

// SemanticConfig configures the natural-language element finder.
type SemanticConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// HealingConfig configures the selector-healing store.
type HealingConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// GoldenCopyConfig configures baseline capture and comparison.
type GoldenCopyConfig struct {
	BaselineDir  string `mapstructure:"baseline_dir"`
	RegistryPath string `mapstructure:"registry_path"`
}

// Load reads configuration from the given path (optional) plus environment
// variables and returns the validated Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TOAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".toast-automation"))
		}
		v.AddConfigPath(".")
		// A missing default config file is fine; defaults + env apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".toast-automation")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "America/New_York")
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.action_timeout", 10*time.Second)

	v.SetDefault("sessions.storage_dir", filepath.Join(base, "sessions"))
	v.SetDefault("sessions.max_age", 24*time.Hour)
	v.SetDefault("sessions.lock_timeout", 30*time.Second)

	v.SetDefault("diagnostics.watch_domains", []string{"*.toasttab.com"})
	v.SetDefault("diagnostics.auth_paths", []string{"/login", "/auth", "/oauth"})
	v.SetDefault("diagnostics.screenshot_dir", filepath.Join(base, "screenshots"))

	v.SetDefault("toast.base_url", "https://www.toasttab.com")
	v.SetDefault("toast.destinations", map[string]string{
		"home":      "/restaurants/admin/home",
		"menus":     "/restaurants/admin/menus",
		"items":     "/restaurants/admin/menu-items",
		"modifiers": "/restaurants/admin/modifier-groups",
		"reports":   "/restaurants/admin/reports",
	})
	v.SetDefault("toast.login_url_markers", []string{"/login", "auth.toasttab.com"})

	v.SetDefault("semantic.model", "gpt-4o")

	v.SetDefault("healing.db_path", filepath.Join(base, "selectors.db"))

	v.SetDefault("golden_copy.baseline_dir", filepath.Join(base, "baselines"))
	v.SetDefault("golden_copy.registry_path", "")

	v.SetDefault("log_dir", filepath.Join(base, "logs"))
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Sessions.StorageDir == "" {
		return fmt.Errorf("sessions.storage_dir must not be empty")
	}
	if c.Sessions.MaxAge <= 0 {
		return fmt.Errorf("sessions.max_age must be positive, got %s", c.Sessions.MaxAge)
	}
	if c.Sessions.LockTimeout <= 0 {
		return fmt.Errorf("sessions.lock_timeout must be positive, got %s", c.Sessions.LockTimeout)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Toast.BaseURL == "" {
		return fmt.Errorf("toast.base_url must not be empty")
	}
	return nil
}
