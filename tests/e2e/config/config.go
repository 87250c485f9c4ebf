package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TestConfig holds all configuration for E2E tests
type TestConfig struct {
	// BaseURL is the application page under test. Empty means the suite
	// starts the in-process fleet stub.
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Headless       bool          `mapstructure:"headless"`
	SlowMo         time.Duration `mapstructure:"slow_mo"`
	Browser        string        `mapstructure:"browser"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	Screenshots    bool          `mapstructure:"screenshots"`
	Videos         bool          `mapstructure:"videos"`
	ArtifactsDir   string        `mapstructure:"artifacts_dir"`
	LocatorsFile   string        `mapstructure:"locators_file"`
	LoginPath      string        `mapstructure:"login_path"`
	LoginUser      string        `mapstructure:"login_user"`
	LoginPassword  string        `mapstructure:"login_password"`
	Preinstalled   bool          `mapstructure:"playwright_preinstalled"`
}

// env names for each key; keys double as e2e.yaml field names
var envBindings = map[string]string{
	"base_url":                "BASE_URL",
	"timeout":                 "E2E_TIMEOUT",
	"headless":                "HEADLESS",
	"slow_mo":                 "SLOW_MO",
	"browser":                 "E2E_BROWSER",
	"viewport_width":          "VIEWPORT_WIDTH",
	"viewport_height":         "VIEWPORT_HEIGHT",
	"screenshots":             "SCREENSHOTS",
	"videos":                  "VIDEOS",
	"artifacts_dir":           "ARTIFACTS_DIR",
	"locators_file":           "LOCATORS_FILE",
	"login_path":              "LOGIN_PATH",
	"login_user":              "LOGIN_USER",
	"login_password":          "LOGIN_PASSWORD",
	"playwright_preinstalled": "PLAYWRIGHT_PREINSTALLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("headless", true)
	v.SetDefault("slow_mo", time.Duration(0))
	v.SetDefault("browser", "chromium")
	v.SetDefault("viewport_width", 1920)
	v.SetDefault("viewport_height", 1080)
	v.SetDefault("screenshots", true)
	v.SetDefault("videos", false)
	v.SetDefault("artifacts_dir", "./test-results")
	v.SetDefault("locators_file", "")
	v.SetDefault("login_path", "")
	v.SetDefault("login_user", "")
	v.SetDefault("login_password", "")
	v.SetDefault("playwright_preinstalled", false)
}

// loadDotEnv copies KEY=VALUE pairs from dir/.env into the process
// environment. Existing environment variables take precedence.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		val := env.GetString(key)
		if val == "" || os.Getenv(name) != "" {
			continue
		}
		_ = os.Setenv(name, val)
	}
	return nil
}

// Load resolves the configuration from defaults, dir/e2e.yaml, dir/.env and
// the environment, in increasing order of precedence.
func Load(dir string) (*TestConfig, error) {
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("e2e")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read e2e config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &TestConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal e2e config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("[e2e-config] BaseURL=%q Timeout=%s Browser=%s Headless=%t", cfg.BaseURL, cfg.Timeout, cfg.Browser, cfg.Headless)
	return cfg, nil
}

// Validate rejects configurations the session cannot honor
func (c *TestConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("unsupported browser %q", c.Browser)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid BASE_URL %q", c.BaseURL)
		}
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if (c.LoginUser == "") != (c.LoginPassword == "") {
		return errors.New("LOGIN_USER and LOGIN_PASSWORD must be set together")
	}
	return nil
}

// LoginEnabled reports whether Setup should sign in before navigating
func (c *TestConfig) LoginEnabled() bool {
	return c.LoginPath != "" && c.LoginUser != ""
}

// TimeoutMillis is Timeout in the unit playwright expects
func (c *TestConfig) TimeoutMillis() float64 {
	return float64(c.Timeout.Milliseconds())
}

// Reachable reports whether base answers HTTP within a short deadline.
func Reachable(base string) bool {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	d := net.Dialer{Timeout: 250 * time.Millisecond}
	conn, err := d.Dial("tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
