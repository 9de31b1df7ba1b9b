// Package config resolves cardscan settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/cardscan/internal/geometry"
)

const (
	ExtractorAPI    = "api"
	ExtractorGemini = "gemini"
)

type Config struct {
	APIURL          string        `yaml:"api_url"`
	StorageURL      string        `yaml:"storage_url"`
	Token           string        `yaml:"token"`
	DetectorMaxSide int           `yaml:"detector_max_side"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	Extractor       string        `yaml:"extractor"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	LedgerPath      string        `yaml:"ledger"`
	WorkDir         string        `yaml:"work_dir"`
	LogLevel        string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		APIURL:          "http://localhost:8000",
		DetectorMaxSide: geometry.DefaultDetectorMaxSide,
		Extractor:       ExtractorAPI,
		GeminiModel:     "gemini-1.5-flash",
		WorkDir:         os.TempDir(),
		LogLevel:        "info",
	}
}

// Load applies the YAML file at path (if non-empty) and then the environment
// on top of the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.APIURL, "CARDSCAN_API_URL")
	setString(&c.StorageURL, "CARDSCAN_STORAGE_URL")
	setString(&c.Token, "CARDSCAN_TOKEN")
	setString(&c.Extractor, "CARDSCAN_EXTRACTOR")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.LedgerPath, "CARDSCAN_LEDGER")
	setString(&c.WorkDir, "CARDSCAN_WORK_DIR")
	setString(&c.LogLevel, "CARDSCAN_LOG_LEVEL")

	if v := os.Getenv("CARDSCAN_DETECTOR_MAX_SIDE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CARDSCAN_DETECTOR_MAX_SIDE %q: %w", v, err)
		}
		c.DetectorMaxSide = n
	}
	if v := os.Getenv("CARDSCAN_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CARDSCAN_HTTP_TIMEOUT %q: %w", v, err)
		}
		c.HTTPTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url is required (CARDSCAN_API_URL)"))
	}
	if c.DetectorMaxSide <= 0 {
		errs = append(errs, fmt.Errorf("detector max side must be positive, got %d", c.DetectorMaxSide))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http timeout must not be negative, got %s", c.HTTPTimeout))
	}
	switch c.Extractor {
	case ExtractorAPI:
	case ExtractorGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when the extractor is gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported extractor %q: must be %q or %q", c.Extractor, ExtractorAPI, ExtractorGemini))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
