package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Crawler.MaxPagesDefault)
	require.Equal(t, 80000, cfg.Pipeline.Stage1TextLimit)
	require.Equal(t, 50000, cfg.Pipeline.StageTextLimit)
	require.Equal(t, 50, cfg.Pipeline.LinkCap)
	require.Equal(t, 5, cfg.LinkCheck.Concurrency)
	require.Equal(t, 200*time.Millisecond, cfg.CrawlDelay())
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
	require.Equal(t, 5*time.Second, cfg.ProbeTimeout())
	require.Equal(t, 2*time.Second, cfg.PageDelay())
	require.Equal(t, "googleai", cfg.Oracle.Provider)
	require.Contains(t, cfg.Crawler.UserAgent, "Chrome/120")
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
crawler:
  delay_ms: 0
  max_pages_default: 5
linkcheck:
  concurrency: 2
oracle:
  provider: ollama
  model: llama3
  base_url: http://localhost:11434
pipeline:
  stage1_text_limit: 15000
  trusted_domain: example.org
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, time.Duration(0), cfg.CrawlDelay())
	require.Equal(t, 5, cfg.Crawler.MaxPagesDefault)
	require.Equal(t, 2, cfg.LinkCheck.Concurrency)
	require.Equal(t, "ollama", cfg.Oracle.Provider)
	require.Equal(t, 15000, cfg.Pipeline.Stage1TextLimit)
	require.Equal(t, "example.org", cfg.Pipeline.TrustedDomain)
	require.False(t, cfg.Logging.Development)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid fetch timeout", func(c *Config) { c.Crawler.TimeoutSeconds = 0 }, "crawler.timeout_seconds"},
		{"invalid max pages", func(c *Config) { c.Crawler.MaxPagesDefault = 0 }, "crawler.max_pages_default"},
		{"headless missing max parallel", func(c *Config) {
			c.Headless.Enabled = true
			c.Headless.MaxParallel = 0
		}, "headless.max_parallel"},
		{"invalid concurrency", func(c *Config) { c.LinkCheck.Concurrency = 0 }, "linkcheck.concurrency"},
		{"unknown provider", func(c *Config) { c.Oracle.Provider = "bard" }, "oracle.provider"},
		{"missing model", func(c *Config) { c.Oracle.Model = "" }, "oracle.model"},
		{"text limit", func(c *Config) { c.Pipeline.Stage1TextLimit = 0 }, "text limits"},
		{"negative delay", func(c *Config) { c.Pipeline.PageDelayMs = -1 }, "delays"},
		{"auth missing api key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"half pubsub", func(c *Config) { c.PubSub.ProjectID = "p" }, "pubsub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}
