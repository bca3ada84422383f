package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const Production = "production"

var envFiles = []string{".env", ".env.local"}

type Config struct {
	Addr                 string        `env:"APP_ADDR" envDefault:":8080"`
	Environment          string        `env:"APP_ENV" envDefault:"development"`
	BackendBaseURL       string        `env:"BACKEND_BASE_URL"`
	BackendTimeout       time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	AlertTTL             time.Duration `env:"ALERT_TTL" envDefault:"5s"`
	SearchDebounce       time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"300ms"`
	DefaultReportYear    int           `env:"DEFAULT_REPORT_YEAR" envDefault:"0"`
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	MaxBodyBytes         int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	GenerateRateLimit    string        `env:"GENERATE_RATE_LIMIT" envDefault:"20-M"`
	CORSAllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled       bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath          string        `env:"METRICS_PATH" envDefault:"/metrics"`
}

// Load reads .env files that exist, then the process environment. Variables
// already set in the environment win over the files.
func Load() (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, errors.Wrap(err, "load env files")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func (c Config) IsProduction() bool {
	return c.Environment == Production
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendBaseURL) == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	u, err := url.Parse(c.BackendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("BACKEND_BASE_URL must be an absolute http(s) URL")
	}
	if c.BackendTimeout <= 0 {
		return errors.New("BACKEND_TIMEOUT must be positive")
	}
	if c.AlertTTL <= 0 {
		return errors.New("ALERT_TTL must be positive")
	}
	if c.SearchDebounce < 0 {
		return errors.New("SEARCH_DEBOUNCE must not be negative")
	}
	if c.SessionIdleTimeout <= 0 || c.SessionSweepInterval <= 0 {
		return errors.New("SESSION_IDLE_TIMEOUT and SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.DefaultReportYear != 0 && (c.DefaultReportYear < 1970 || c.DefaultReportYear > 9999) {
		return errors.New("DEFAULT_REPORT_YEAR must be 0 or between 1970 and 9999")
	}
	if c.MaxBodyBytes < 1024 {
		return errors.New("MAX_BODY_BYTES must be at least 1024")
	}
	if strings.TrimSpace(c.GenerateRateLimit) == "" {
		return errors.New("GENERATE_RATE_LIMIT must be set, e.g. 20-M")
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		return errors.New("METRICS_PATH must start with /")
	}
	return nil
}
