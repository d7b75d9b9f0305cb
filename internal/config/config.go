// Package config loads and validates SmartQA configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	LinkCheck LinkCheckConfig `mapstructure:"linkcheck"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlerConfig governs page fetching and traversal.
type CrawlerConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	Accept          string `mapstructure:"accept"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	DelayMs         int    `mapstructure:"delay_ms"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
}

// HeadlessConfig configures the optional chromedp re-fetch of JS-heavy pages.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// LinkCheckConfig configures the external link prober.
type LinkCheckConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRedirects   int    `mapstructure:"max_redirects"`
	Concurrency    int    `mapstructure:"concurrency"`
}

// OracleConfig selects and configures the text-completion backend.
type OracleConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PipelineConfig holds the stage limits and pacing delays.
type PipelineConfig struct {
	Stage1TextLimit int    `mapstructure:"stage1_text_limit"`
	StageTextLimit  int    `mapstructure:"stage_text_limit"`
	OutlineLimit    int    `mapstructure:"outline_limit"`
	LinkCap         int    `mapstructure:"link_cap"`
	StageDelayMs    int    `mapstructure:"stage_delay_ms"`
	PageDelayMs     int    `mapstructure:"page_delay_ms"`
	SiteDelayMs     int    `mapstructure:"site_delay_ms"`
	TrustedDomain   string `mapstructure:"trusted_domain"`
}

// ProgressConfig tunes the progress hub and stream listeners.
type ProgressConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxBatchEvents int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int `mapstructure:"max_batch_wait_ms"`
	ListenerBuffer int `mapstructure:"listener_buffer"`
}

// DBConfig enables the optional Postgres progress store when DSN is set.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig enables audit-completed notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TelemetryConfig toggles OpenTelemetry. ProjectID enables export to Cloud Trace.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	ProjectID   string `mapstructure:"project_id"`
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SMARTQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.request_timeout_seconds", 900)
	v.SetDefault("logging.development", true)
	v.SetDefault("crawler.user_agent", browserUserAgent)
	v.SetDefault("crawler.accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.delay_ms", 200)
	v.SetDefault("crawler.max_pages_default", 20)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("linkcheck.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("linkcheck.timeout_seconds", 5)
	v.SetDefault("linkcheck.max_redirects", 5)
	v.SetDefault("linkcheck.concurrency", 5)
	v.SetDefault("oracle.provider", "googleai")
	v.SetDefault("oracle.model", "gemini-2.0-flash")
	v.SetDefault("oracle.timeout_seconds", 120)
	v.SetDefault("pipeline.stage1_text_limit", 80000)
	v.SetDefault("pipeline.stage_text_limit", 50000)
	v.SetDefault("pipeline.outline_limit", 6000)
	v.SetDefault("pipeline.link_cap", 50)
	v.SetDefault("pipeline.stage_delay_ms", 1000)
	v.SetDefault("pipeline.page_delay_ms", 2000)
	v.SetDefault("pipeline.site_delay_ms", 1000)
	v.SetDefault("pipeline.trusted_domain", "tarmaac.io")
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 64)
	v.SetDefault("progress.max_batch_wait_ms", 100)
	v.SetDefault("progress.listener_buffer", 64)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "smartqa")
	v.SetDefault("telemetry.version", "dev")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 {
		return fmt.Errorf("crawler.max_pages_default must be > 0")
	}
	if c.Crawler.DelayMs < 0 {
		return fmt.Errorf("crawler.delay_ms must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.LinkCheck.TimeoutSeconds <= 0 {
		return fmt.Errorf("linkcheck.timeout_seconds must be > 0")
	}
	if c.LinkCheck.Concurrency <= 0 {
		return fmt.Errorf("linkcheck.concurrency must be > 0")
	}
	switch c.Oracle.Provider {
	case "googleai", "openai", "ollama":
	default:
		return fmt.Errorf("oracle.provider must be one of googleai, openai, ollama (got %q)", c.Oracle.Provider)
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model must be set")
	}
	if c.Pipeline.Stage1TextLimit <= 0 || c.Pipeline.StageTextLimit <= 0 {
		return fmt.Errorf("pipeline text limits must be > 0")
	}
	if c.Pipeline.LinkCap <= 0 {
		return fmt.Errorf("pipeline.link_cap must be > 0")
	}
	if c.Pipeline.StageDelayMs < 0 || c.Pipeline.PageDelayMs < 0 || c.Pipeline.SiteDelayMs < 0 {
		return fmt.Errorf("pipeline delays must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name must be set when telemetry is enabled")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// FetchTimeout is the per-page fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// ProbeTimeout is the per-request link probe timeout.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.LinkCheck.TimeoutSeconds) * time.Second
}

// OracleTimeout bounds one oracle call.
func (c Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds one non-streaming API request, which includes a full audit.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// CrawlDelay is the courtesy pause between page fetches.
func (c Config) CrawlDelay() time.Duration { return millis(c.Crawler.DelayMs) }

// StageDelay is the minimum spacing between oracle calls.
func (c Config) StageDelay() time.Duration { return millis(c.Pipeline.StageDelayMs) }

// PageDelay is the pause between two pages of the per-page stages.
func (c Config) PageDelay() time.Duration { return millis(c.Pipeline.PageDelayMs) }

// SiteDelay is the pause before each site-wide stage.
func (c Config) SiteDelay() time.Duration { return millis(c.Pipeline.SiteDelayMs) }

// BatchWait is the progress hub's flush interval.
func (c Config) BatchWait() time.Duration { return millis(c.Progress.MaxBatchWaitMs) }
