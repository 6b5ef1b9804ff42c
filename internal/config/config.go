package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/hurricane-hunter/internal/balloon"
	"github.com/i474232898/hurricane-hunter/internal/common"
	"github.com/i474232898/hurricane-hunter/internal/storm"
	"github.com/i474232898/hurricane-hunter/internal/upstream"
)

var validate = validator.New()

// AppConfig holds all service settings. Values come from defaults, then an
// optional YAML file (CONFIG_FILE), then environment variables.
type AppConfig struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	LogLevel        string        `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat       string        `yaml:"log_format" validate:"oneof=text json"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`

	// Balloon snapshot feed.
	BalloonBaseURL string        `yaml:"balloon_base_url" validate:"required,url"`
	BalloonHours   int           `yaml:"balloon_hours" validate:"min=1,max=24"`
	BalloonTimeout time.Duration `yaml:"balloon_timeout" validate:"gt=0"`

	// NWS alert feed.
	AlertBaseURL   string        `yaml:"alert_base_url" validate:"required,url"`
	AlertTimeout   time.Duration `yaml:"alert_timeout" validate:"gt=0"`
	AlertUserAgent string        `yaml:"alert_user_agent" validate:"required"`
	AlertRegions   []string      `yaml:"alert_regions" validate:"min=1,dive,required,alpha,len=2"`
	AlertKeywords  []string      `yaml:"alert_keywords" validate:"min=1,dive,required"`

	// Aggregate cache lifetimes.
	HistoryCacheTTL time.Duration `yaml:"history_cache_ttl" validate:"gt=0"`
	StormsCacheTTL  time.Duration `yaml:"storms_cache_ttl" validate:"gt=0"`

	// WarmInterval refreshes both caches in the background; 0 disables it.
	WarmInterval time.Duration `yaml:"warm_interval" validate:"gte=0"`

	// Outbound request rate shared by all upstream calls.
	UpstreamRPS   float64 `yaml:"upstream_rps" validate:"gt=0"`
	UpstreamBurst int     `yaml:"upstream_burst" validate:"gte=1"`

	// CORSOrigins must be explicit; credentials are never allowed for a wildcard.
	CORSOrigins []string `yaml:"cors_origins" validate:"min=1,dive,url"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:            "8080",
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,

		BalloonBaseURL: upstream.DefaultWindBorneURL,
		BalloonHours:   balloon.DefaultHours,
		BalloonTimeout: 10 * time.Second,

		AlertBaseURL:   upstream.DefaultNWSURL,
		AlertTimeout:   15 * time.Second,
		AlertUserAgent: upstream.DefaultNWSUserAgent,
		AlertRegions:   append([]string(nil), storm.DefaultRegions...),
		AlertKeywords:  append([]string(nil), storm.DefaultKeywords...),

		HistoryCacheTTL: 10 * time.Minute,
		StormsCacheTTL:  5 * time.Minute,

		UpstreamRPS:   20,
		UpstreamBurst: 32,

		CORSOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
		},
	}
}

// Load reads configuration with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	c.Port = getenvDefault("PORT", c.Port)
	c.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", c.LogFormat))
	c.BalloonBaseURL = getenvDefault("BALLOON_BASE_URL", c.BalloonBaseURL)
	c.AlertBaseURL = getenvDefault("ALERT_BASE_URL", c.AlertBaseURL)
	c.AlertUserAgent = getenvDefault("ALERT_USER_AGENT", c.AlertUserAgent)

	if v := os.Getenv("ALERT_REGIONS"); v != "" {
		c.AlertRegions = common.SplitList(strings.ToUpper(v))
	}
	if v := os.Getenv("ALERT_KEYWORDS"); v != "" {
		c.AlertKeywords = common.SplitList(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = common.SplitList(v)
	}

	var errs []error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
		{"BALLOON_TIMEOUT", &c.BalloonTimeout},
		{"ALERT_TIMEOUT", &c.AlertTimeout},
		{"HISTORY_CACHE_TTL", &c.HistoryCacheTTL},
		{"STORMS_CACHE_TTL", &c.StormsCacheTTL},
		{"WARM_INTERVAL", &c.WarmInterval},
	}
	for _, d := range durations {
		if err := getenvDuration(d.key, d.dst); err != nil {
			errs = append(errs, err)
		}
	}

	if err := getenvInt("BALLOON_HOURS", &c.BalloonHours); err != nil {
		errs = append(errs, err)
	}
	if err := getenvInt("UPSTREAM_BURST", &c.UpstreamBurst); err != nil {
		errs = append(errs, err)
	}
	if v := os.Getenv("UPSTREAM_RPS"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid UPSTREAM_RPS: %w", err))
		} else {
			c.UpstreamRPS = n
		}
	}

	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func getenvInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}
