// Package config loads runtime configuration for the tapemachine CLI and server.
//
// Precedence (lowest to highest): Default(), the YAML file, TAPEMACHINE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/log"
)

// Config is the complete runtime configuration.
type Config struct {
	MaxSteps         int           `yaml:"maxSteps"`
	BatchConcurrency int           `yaml:"batchConcurrency"`
	LogLevel         string        `yaml:"logLevel"`
	Trace            bool          `yaml:"trace"`
	Records          RecordsConfig `yaml:"records"`
	Server           ServerConfig  `yaml:"server"`
}

// RecordsConfig controls run record persistence. An empty Dir disables it.
type RecordsConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // json | yaml
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Listen     string        `yaml:"listen"`
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

// Environment variable names.
const (
	EnvMaxSteps         = "TAPEMACHINE_MAX_STEPS"
	EnvBatchConcurrency = "TAPEMACHINE_BATCH_CONCURRENCY"
	EnvLogLevel         = "TAPEMACHINE_LOG_LEVEL"
	EnvTrace            = "TAPEMACHINE_TRACE"
	EnvRecordsDir       = "TAPEMACHINE_RECORDS_DIR"
	EnvRecordsFormat    = "TAPEMACHINE_RECORDS_FORMAT"
	EnvListen           = "TAPEMACHINE_LISTEN"
	EnvRateLimit        = "TAPEMACHINE_RATE_LIMIT"
	EnvRateWindow       = "TAPEMACHINE_RATE_WINDOW"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxSteps:         tapemachine.DefaultMaxSteps,
		BatchConcurrency: 4,
		LogLevel:         "info",
		Records: RecordsConfig{
			Format: "json",
		},
		Server: ServerConfig{
			Listen:     ":8080",
			RateLimit:  60,
			RateWindow: time.Minute,
		},
	}
}

// Load reads path (if non-empty) over Default(), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that layer more overrides on top.
func Read(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config %s: %w", path, err)
		}
		defer f.Close()
		if err := decodeStrict(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Parse decodes YAML data over Default() without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decodeStrict(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// decodeStrict rejects unknown keys. An empty document leaves cfg unchanged.
func decodeStrict(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.MaxSteps = ParseInt(EnvMaxSteps, cfg.MaxSteps)
	cfg.BatchConcurrency = ParseInt(EnvBatchConcurrency, cfg.BatchConcurrency)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.Trace = ParseBool(EnvTrace, cfg.Trace)
	cfg.Records.Dir = ParseString(EnvRecordsDir, cfg.Records.Dir)
	cfg.Records.Format = ParseString(EnvRecordsFormat, cfg.Records.Format)
	cfg.Server.Listen = ParseString(EnvListen, cfg.Server.Listen)
	cfg.Server.RateLimit = ParseInt(EnvRateLimit, cfg.Server.RateLimit)
	cfg.Server.RateWindow = ParseDuration(EnvRateWindow, cfg.Server.RateWindow)
}

// Validate checks field ranges. MaxSteps <= 0 is allowed and disables the step ceiling.
func (c Config) Validate() error {
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("%w: batchConcurrency must be >= 1 (got %d)", ErrInvalidConfig, c.BatchConcurrency)
	}
	switch c.Records.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: records.format must be json or yaml (got %q)", ErrInvalidConfig, c.Records.Format)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rateLimit must be >= 0 (got %d)", ErrInvalidConfig, c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("%w: server.rateWindow must be positive when rateLimit is set", ErrInvalidConfig)
	}
	if c.LogLevel != "" {
		if _, err := parseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: logLevel: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// LogConfig returns the logger configuration derived from c.
func (c Config) LogConfig(out io.Writer) log.Config {
	return log.Config{Level: c.LogLevel, Output: out}
}
