package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test in an empty directory so a developer's .env
// cannot leak into it.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.False(t, cfg.HTTP.TrustProxy, "forwarded headers are ignored unless enabled")
	assert.Equal(t, "data/innovations.db", cfg.DB.Path)
	assert.Equal(t, time.Duration(0), cfg.Auth.SessionTTL, "sessions never expire by default")
	assert.Equal(t, 5*time.Second, cfg.Auth.VerifyTimeout)
	assert.Empty(t, cfg.Auth.AdminEmails)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Error(t, cfg.Validate(), "client id and domain are required to serve")
}

func TestLoad_Environment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("INNOVATION_HTTP_PORT", "9090")
	t.Setenv("INNOVATION_HTTP_TRUST_PROXY", "true")
	t.Setenv("INNOVATION_AUTH_GOOGLE_CLIENT_ID", "client-123")
	t.Setenv("INNOVATION_AUTH_ALLOWED_DOMAIN", "@PMS.edu.my")
	t.Setenv("INNOVATION_AUTH_SESSION_TTL", "720h")
	t.Setenv("INNOVATION_AUTH_ADMIN_EMAILS", "a@pms.edu.my, b@pms.edu.my")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.True(t, cfg.HTTP.TrustProxy)
	assert.Equal(t, "client-123", cfg.Auth.GoogleClientID)
	assert.Equal(t, "pms.edu.my", cfg.Auth.AllowedDomain)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"a@pms.edu.my", "b@pms.edu.my"}, cfg.Auth.AdminEmails)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DotEnvAndFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("INNOVATION_AUTH_GOOGLE_CLIENT_ID=from-dotenv\n"), 0o600))
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile,
		[]byte("auth:\n  allowed_domain: pms.edu.my\n  google_client_id: from-file\nlog:\n  format: json\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("INNOVATION_AUTH_GOOGLE_CLIENT_ID") })

	cfg, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.GoogleClientID, "environment beats the config file")
	assert.Equal(t, "pms.edu.my", cfg.Auth.AllowedDomain)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTP: HTTPConfig{Port: 8080},
			DB:   DBConfig{Path: "x.db"},
			Auth: AuthConfig{
				GoogleClientID: "id", AllowedDomain: "pms.edu.my",
				VerifyTimeout: time.Second, LoginRate: 1, LoginBurst: 5,
			},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
		{"no db", func(c *Config) { c.DB.Path = "" }},
		{"short state secret", func(c *Config) { c.Auth.StateSecret = "short" }},
		{"negative ttl", func(c *Config) { c.Auth.SessionTTL = -time.Second }},
		{"zero timeout", func(c *Config) { c.Auth.VerifyTimeout = 0 }},
		{"zero burst", func(c *Config) { c.Auth.LoginBurst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestString_MasksSecrets(t *testing.T) {
	c := &Config{Auth: AuthConfig{GoogleClientSecret: "super-secret", StateSecret: "another-secret-value"}}
	s := c.String()
	assert.NotContains(t, s, "super-secret")
	assert.NotContains(t, s, "another-secret-value")
	assert.Contains(t, s, "****")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = LogConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
	_, err = LogConfig{Level: "info", Format: "xml"}.NewLogger(&buf)
	assert.Error(t, err)
}
