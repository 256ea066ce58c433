// Package config loads service settings from config/{ENV_NAME}.yaml, config/secrets.yaml,
// an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProviderURL = "https://api.openweathermap.org/data/2.5"
	defaultEnvName     = "dev"
)

// Config holds service configuration.
type Config struct {
	EnvName    string
	ServerPort string

	ProviderAPIKey    string
	ProviderAPIURL    string
	ProviderTimeout   time.Duration
	ProviderRateRPS   float64 // outbound; 0 disables
	ProviderRateBurst int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	CircuitBreakerEnabled   bool
	CircuitFailureThreshold int
	CircuitSuccessThreshold int
	CircuitTimeout          time.Duration

	RequestTimeout time.Duration
	CityMinLength  int
	CityMaxLength  int

	RateLimitRPS   int // inbound; 0 disables
	RateLimitBurst int

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	WarmCities            []string
	WarmInterval          time.Duration

	HealthDegradedWindow   time.Duration
	HealthDegradedErrorPct int
	HealthCheckAPIKey      bool

	ShutdownTimeout time.Duration

	TrackedCities []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Provider struct {
		URL            string  `yaml:"url"`
		Timeout        string  `yaml:"timeout"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"provider"`

	Retry struct {
		MaxAttempts int    `yaml:"max_attempts"`
		BaseDelay   string `yaml:"base_delay"`
		MaxDelay    string `yaml:"max_delay"`
	} `yaml:"retry"`

	CircuitBreaker struct {
		Enabled          bool   `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Request struct {
		Timeout       string `yaml:"timeout"`
		CityMinLength int    `yaml:"city_min_length"`
		CityMaxLength int    `yaml:"city_max_length"`
	} `yaml:"request"`

	RateLimit struct {
		RPS   *int `yaml:"rps"`
		Burst int  `yaml:"burst"`
	} `yaml:"rate_limit"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		WarmCities   []string `yaml:"warm_cities"`
		WarmInterval string   `yaml:"warm_interval"`
	} `yaml:"cache"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct *int   `yaml:"degraded_error_pct"`
		CheckAPIKey      bool   `yaml:"check_api_key"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	OpenWeatherMapAPIKey string `yaml:"openweathermap_api_key"`
}

// Load reads configuration relative to the working directory. Call from the project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads <dir>/.env, <dir>/config/{ENV_NAME}.yaml and <dir>/config/secrets.yaml.
// Real environment variables win over .env entries; .env never modifies the process env.
// A missing dev.yaml falls back to defaults, but an explicitly named ENV_NAME file must exist.
func LoadFrom(dir string) (*Config, error) {
	env, err := newEnvLookup(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}

	envName := env.get("ENV_NAME")
	explicitEnv := envName != ""
	if !explicitEnv {
		envName = defaultEnvName
	}

	var fc fileConfig
	configPath := filepath.Join(dir, "config", envName+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && explicitEnv:
		return nil, fmt.Errorf("config file not found: %s", configPath)
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	var errs *multierror.Error
	dur := func(field, s string, def time.Duration) time.Duration {
		d, err := parseDuration(s, def)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", field, err))
		}
		return d
	}

	cfg := &Config{EnvName: envName}
	cfg.ServerPort = firstNonEmpty(fc.Server.Port, "8080")

	apiKey, err := loadAPIKey(env, filepath.Join(dir, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.ProviderAPIKey = apiKey
	cfg.ProviderAPIURL = firstNonEmpty(env.get("OPENWEATHERMAP_API_URL"), fc.Provider.URL, DefaultProviderURL)
	cfg.ProviderTimeout = dur("provider.timeout", fc.Provider.Timeout, 5*time.Second)
	cfg.ProviderRateRPS = fc.Provider.RateLimitRPS
	cfg.ProviderRateBurst = fc.Provider.RateLimitBurst
	if cfg.ProviderRateRPS > 0 && cfg.ProviderRateBurst <= 0 {
		cfg.ProviderRateBurst = 1
	}

	cfg.RetryAttempts = fc.Retry.MaxAttempts
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	cfg.RetryBaseDelay = dur("retry.base_delay", fc.Retry.BaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = dur("retry.max_delay", fc.Retry.MaxDelay, 2*time.Second)

	cfg.CircuitBreakerEnabled = fc.CircuitBreaker.Enabled
	cfg.CircuitFailureThreshold = orDefault(fc.CircuitBreaker.FailureThreshold, 5)
	cfg.CircuitSuccessThreshold = orDefault(fc.CircuitBreaker.SuccessThreshold, 2)
	cfg.CircuitTimeout = dur("circuit_breaker.timeout", fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.RequestTimeout = dur("request.timeout", fc.Request.Timeout, 10*time.Second)
	cfg.CityMinLength = orDefault(fc.Request.CityMinLength, 1)
	cfg.CityMaxLength = orDefault(fc.Request.CityMaxLength, 100)

	cfg.RateLimitRPS = 100
	if fc.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *fc.RateLimit.RPS
	}
	cfg.RateLimitBurst = orDefault(fc.RateLimit.Burst, 250)

	cfg.CacheBackend = strings.ToLower(firstNonEmpty(env.get("CACHE_BACKEND"), fc.Cache.Backend, "in_memory"))
	cfg.CacheTTL = dur("cache.ttl", fc.Cache.TTL, 0)
	cfg.MemcachedAddrs = firstNonEmpty(env.get("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = dur("cache.memcached.timeout", fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = orDefault(fc.Cache.Memcached.MaxIdleConns, 2)
	cfg.WarmCities = trimAll(fc.Cache.WarmCities)
	cfg.WarmInterval = dur("cache.warm_interval", fc.Cache.WarmInterval, 0)

	cfg.HealthDegradedWindow = dur("health.degraded_window", fc.Health.DegradedWindow, time.Minute)
	cfg.HealthDegradedErrorPct = 50
	if fc.Health.DegradedErrorPct != nil {
		cfg.HealthDegradedErrorPct = *fc.Health.DegradedErrorPct
	}
	cfg.HealthCheckAPIKey = fc.Health.CheckAPIKey

	cfg.ShutdownTimeout = dur("shutdown.timeout", fc.Shutdown.Timeout, 30*time.Second)
	cfg.TrackedCities = trimAll(fc.Metrics.TrackedCities)

	errs = multierror.Append(errs, validate(cfg))
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadAPIKey prefers OPENWEATHERMAP_API_KEY, then WEATHER_API_KEY, then secrets.yaml.
func loadAPIKey(env envLookup, secretsPath string) (string, error) {
	if k := firstNonEmpty(env.get("OPENWEATHERMAP_API_KEY"), env.get("WEATHER_API_KEY")); k != "" {
		return k, nil
	}
	data, err := os.ReadFile(secretsPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.OpenWeatherMapAPIKey), nil
}

// validate reports every problem at once. It may nudge RequestTimeout above the provider timeout.
func validate(cfg *Config) error {
	var errs *multierror.Error
	add := func(format string, args ...interface{}) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	if cfg.ProviderAPIKey == "" {
		add("OPENWEATHERMAP_API_KEY required (set env, .env, or config/secrets.yaml openweathermap_api_key)")
	}
	if u, err := url.Parse(cfg.ProviderAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("provider.url must be an absolute http(s) URL, got %q", cfg.ProviderAPIURL)
	}
	if cfg.ProviderTimeout <= 0 {
		add("provider.timeout must be positive")
	}
	if cfg.ProviderRateRPS < 0 {
		add("provider.rate_limit_rps must not be negative")
	}
	if cfg.RetryAttempts < 1 {
		add("retry.max_attempts must be at least 1, got %d", cfg.RetryAttempts)
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		add("retry.max_delay (%s) must be >= retry.base_delay (%s)", cfg.RetryMaxDelay, cfg.RetryBaseDelay)
	}
	if cfg.CityMinLength < 0 || cfg.CityMaxLength < cfg.CityMinLength {
		add("request.city_min_length/city_max_length out of order: %d/%d", cfg.CityMinLength, cfg.CityMaxLength)
	}
	if cfg.RateLimitRPS < 0 {
		add("rate_limit.rps must not be negative")
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		add("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.CacheTTL < 0 {
		add("cache.ttl must not be negative")
	}
	if cfg.HealthDegradedErrorPct < 0 || cfg.HealthDegradedErrorPct > 100 {
		add("health.degraded_error_pct must be within 0-100, got %d", cfg.HealthDegradedErrorPct)
	}

	if cfg.ProviderTimeout > 0 && cfg.RequestTimeout <= cfg.ProviderTimeout {
		cfg.RequestTimeout = cfg.ProviderTimeout + time.Second
	}
	return errs.ErrorOrNil()
}

// envLookup reads the process environment first and falls back to .env entries.
type envLookup map[string]string

func newEnvLookup(path string) (envLookup, error) {
	m, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return envLookup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return envLookup(m), nil
}

func (e envLookup) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(e[key])
}

// parseDuration returns def for an empty string. Zero is allowed; the caller decides what it means.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, err
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
