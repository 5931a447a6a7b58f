package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weathernow/internal/client"
)

// Provider holds one upstream source's endpoint, timeout and key.
type Provider struct {
	URL     string
	Timeout time.Duration
	APIKey  string
}

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	ServerPort string

	DefaultLocation string
	MinLocationLen  int
	MaxLocationLen  int
	RefreshInterval time.Duration

	Geocode    Provider
	Forecast   Provider
	Daily      Provider
	Country    Provider
	Population Provider

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	ShutdownTimeout      time.Duration
	ShutdownDrainTimeout time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	TrackedLocations []string
}

type providerFile struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Location struct {
		Default string `yaml:"default"`
		MinLen  int    `yaml:"min_length"`
		MaxLen  int    `yaml:"max_length"`
	} `yaml:"location"`

	Refresh struct {
		Interval string `yaml:"interval"`
	} `yaml:"refresh"`

	Providers struct {
		Geocode    providerFile `yaml:"geocode"`
		Forecast   providerFile `yaml:"forecast"`
		Daily      providerFile `yaml:"daily"`
		Country    providerFile `yaml:"country"`
		Population providerFile `yaml:"population"`
	} `yaml:"providers"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerSuccessThreshold int    `yaml:"breaker_success_threshold"`
		BreakerTimeout          string `yaml:"breaker_timeout"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout      string `yaml:"timeout"`
		DrainTimeout string `yaml:"drain_timeout"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	APINinjasKey        string `yaml:"api_ninjas_key"`
	OpenWeatherDailyKey string `yaml:"openweather_daily_key"`
}

// Load reads configuration relative to the working directory. See LoadFrom.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom loads dir/.env (if present) into the environment, then reads
// dir/config/{ENV_NAME}.yaml (default dev) and dir/config/secrets.yaml. Environment
// variables override file values. Missing API keys are not an error: the sources that
// need them report unavailable.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var sec secretsFile
	secretsData, err := os.ReadFile(filepath.Join(dir, "config", "secrets.yaml"))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(secretsData, &sec); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = envOr("PORT", fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.DefaultLocation = strings.TrimSpace(envOr("DEFAULT_LOCATION", fc.Location.Default))
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = "London"
	}
	cfg.MinLocationLen = fc.Location.MinLen
	if cfg.MinLocationLen <= 0 {
		cfg.MinLocationLen = 1
	}
	cfg.MaxLocationLen = fc.Location.MaxLen
	if cfg.MaxLocationLen <= 0 {
		cfg.MaxLocationLen = 100
	}
	cfg.RefreshInterval = parseDurationOrZero(envOr("REFRESH_INTERVAL", fc.Refresh.Interval), 10*time.Minute)

	cfg.Geocode = provider(fc.Providers.Geocode, client.DefaultGeocodeURL, "")
	cfg.Forecast = provider(fc.Providers.Forecast, client.DefaultForecastURL, "")
	cfg.Daily = provider(fc.Providers.Daily, client.DefaultDailyURL, envOr("OPENWEATHER_DAILY_KEY", sec.OpenWeatherDailyKey))
	ninjasKey := envOr("API_NINJAS_KEY", sec.APINinjasKey)
	cfg.Country = provider(fc.Providers.Country, client.DefaultCountryURL, ninjasKey)
	cfg.Population = provider(fc.Providers.Population, client.DefaultPopulationURL, ninjasKey)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.RateLimitRPS = envInt("RATE_LIMIT_RPS", fc.Reliability.RateLimitRPS)
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", fc.Reliability.RateLimitBurst)
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Reliability.BreakerSuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerTimeout = parseDuration(fc.Reliability.BreakerTimeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownDrainTimeout = parseDuration(fc.Shutdown.DrainTimeout, 10*time.Second)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	cfg.TrackedLocations = fc.Metrics.TrackedLocations

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provider(pf providerFile, defaultURL, key string) Provider {
	p := Provider{
		URL:     strings.TrimSpace(pf.URL),
		Timeout: parseDurationOrZero(pf.Timeout, 5*time.Second),
		APIKey:  strings.TrimSpace(key),
	}
	if p.URL == "" {
		p.URL = defaultURL
	}
	return p
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envInt returns the integer value of key, or fallback when unset or malformed.
func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate rejects values the service cannot run with. RequestTimeout is raised above the
// slowest provider timeout so a lookup is not cut short while its sources still have time.
func validate(cfg *Config) error {
	if cfg.MinLocationLen > cfg.MaxLocationLen {
		return fmt.Errorf("location.min_length (%d) exceeds location.max_length (%d)", cfg.MinLocationLen, cfg.MaxLocationLen)
	}
	if cfg.RefreshInterval < 0 {
		return fmt.Errorf("refresh.interval must not be negative")
	}
	var slowest time.Duration
	for name, p := range map[string]Provider{
		"geocode":    cfg.Geocode,
		"forecast":   cfg.Forecast,
		"daily":      cfg.Daily,
		"country":    cfg.Country,
		"population": cfg.Population,
	} {
		if p.Timeout <= 0 {
			return fmt.Errorf("providers.%s.timeout must be positive", name)
		}
		slowest = max(slowest, p.Timeout)
	}
	// Geocode runs before the other four, which run concurrently.
	if floor := cfg.Geocode.Timeout + slowest; cfg.RequestTimeout <= floor {
		cfg.RequestTimeout = floor + time.Second
	}
	return nil
}
