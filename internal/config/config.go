package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var DefaultEnvFiles = []string{".env", ".env.local"}

type Config struct {
	Port        string `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	AssignmentNumberPrefix string `env:"ASSIGNMENT_NUMBER_PREFIX" envDefault:"CTR"`
	AssignmentNumberWidth  int    `env:"ASSIGNMENT_NUMBER_WIDTH" envDefault:"5"`
	AssignmentCounter      string `env:"ASSIGNMENT_COUNTER" envDefault:"assignment"`
	EligibleHolderKind     string `env:"ELIGIBLE_HOLDER_KIND" envDefault:"tenant"`

	TxMaxRetries     uint64        `env:"TX_MAX_RETRIES" envDefault:"3"`
	TxRetryBaseDelay time.Duration `env:"TX_RETRY_BASE_DELAY" envDefault:"25ms"`
	LockTimeout      time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// Load reads the optional env files, then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AssignmentNumberPrefix) == "" {
		errs = append(errs, errors.New("ASSIGNMENT_NUMBER_PREFIX must not be empty"))
	}
	if c.AssignmentNumberWidth < 1 || c.AssignmentNumberWidth > 12 {
		errs = append(errs, fmt.Errorf("ASSIGNMENT_NUMBER_WIDTH must be in range 1..12, got %d", c.AssignmentNumberWidth))
	}
	if strings.TrimSpace(c.AssignmentCounter) == "" {
		errs = append(errs, errors.New("ASSIGNMENT_COUNTER must not be empty"))
	}
	if c.TxMaxRetries > 10 {
		errs = append(errs, fmt.Errorf("TX_MAX_RETRIES must be at most 10, got %d", c.TxMaxRetries))
	}
	if c.TxRetryBaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("TX_RETRY_BASE_DELAY must be positive, got %s", c.TxRetryBaseDelay))
	}
	switch strings.ToLower(c.LogLevel) {
	case "silent", "error", "warn", "info", "debug":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL=%q (expected silent|error|warn|info|debug)", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT=%q (expected text|json)", c.LogFormat))
	}

	return errors.Join(errs...)
}
