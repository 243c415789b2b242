// Package config loads runtime configuration.
//
// Sources, lowest precedence first: built-in defaults, an optional config
// file (YAML, TOML or JSON), a .env file, and INNOVATION_* environment
// variables. Keys are dotted; the matching variable upper-cases the key and
// replaces dots with underscores, so auth.google_client_id is read from
// INNOVATION_AUTH_GOOGLE_CLIENT_ID.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "INNOVATION"

type Config struct {
	HTTP HTTPConfig `mapstructure:"http"`
	DB   DBConfig   `mapstructure:"db"`
	Auth AuthConfig `mapstructure:"auth"`
	Log  LogConfig  `mapstructure:"log"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	GoogleClientID     string        `mapstructure:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
	GoogleCallbackURL  string        `mapstructure:"google_callback_url"`
	AllowedDomain      string        `mapstructure:"allowed_domain"`
	StateSecret        string        `mapstructure:"state_secret"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	VerifyTimeout      time.Duration `mapstructure:"verify_timeout"`
	AdminEmails        []string      `mapstructure:"admin_emails"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	LoginRate          float64       `mapstructure:"login_rate"`
	LoginBurst         int           `mapstructure:"login_burst"`
}

// CodeFlowEnabled reports whether the server-side Google redirect flow is
// configured. The credential POST login works without it.
func (a AuthConfig) CodeFlowEnabled() bool {
	return a.GoogleClientSecret != "" && a.GoogleCallbackURL != "" && a.StateSecret != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("db.path", "data/innovations.db")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.google_client_secret", "")
	v.SetDefault("auth.google_callback_url", "")
	v.SetDefault("auth.allowed_domain", "")
	v.SetDefault("auth.state_secret", "")
	v.SetDefault("auth.session_ttl", time.Duration(0))
	v.SetDefault("auth.verify_timeout", 5*time.Second)
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.login_rate", 1.0)
	v.SetDefault("auth.login_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. configFile may be empty. A missing .env is
// not an error; a missing configFile is.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	cfg.Auth.AllowedDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Auth.AllowedDomain), "@"))
	cfg.Auth.AdminEmails = splitList(cfg.Auth.AdminEmails)
	return &cfg, nil
}

// splitList flattens entries that still hold comma-separated values and
// drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks what serving requires. Commands that only touch the
// database (migrate, staff) do not call it.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if c.Auth.GoogleClientID == "" {
		errs = append(errs, errors.New("auth.google_client_id is required"))
	}
	if c.Auth.AllowedDomain == "" {
		errs = append(errs, errors.New("auth.allowed_domain is required"))
	}
	if c.Auth.StateSecret != "" && len(c.Auth.StateSecret) < 16 {
		errs = append(errs, errors.New("auth.state_secret must be at least 16 characters"))
	}
	if c.Auth.SessionTTL < 0 {
		errs = append(errs, errors.New("auth.session_ttl must not be negative"))
	}
	if c.Auth.VerifyTimeout <= 0 {
		errs = append(errs, errors.New("auth.verify_timeout must be positive"))
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		errs = append(errs, errors.New("auth.login_rate and auth.login_burst must be positive"))
	}
	return errors.Join(errs...)
}

// String renders the configuration with secrets masked, for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf(
		"http.port=%d http.trust_proxy=%t db.path=%s auth.google_client_id=%s auth.google_client_secret=%s "+
			"auth.google_callback_url=%s auth.allowed_domain=%s auth.state_secret=%s "+
			"auth.session_ttl=%s auth.verify_timeout=%s auth.admin_emails=%v auth.cookie_secure=%t "+
			"auth.login_rate=%g auth.login_burst=%d log.level=%s log.format=%s",
		c.HTTP.Port, c.HTTP.TrustProxy, c.DB.Path, c.Auth.GoogleClientID, mask(c.Auth.GoogleClientSecret),
		c.Auth.GoogleCallbackURL, c.Auth.AllowedDomain, mask(c.Auth.StateSecret),
		c.Auth.SessionTTL, c.Auth.VerifyTimeout, c.Auth.AdminEmails, c.Auth.CookieSecure,
		c.Auth.LoginRate, c.Auth.LoginBurst, c.Log.Level, c.Log.Format,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("config: log.level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config: log.format %q must be text or json", c.Format)
	}
}
