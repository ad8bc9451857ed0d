package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "txray.yaml"

// Config represents the top-level txray.yaml configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Import     ImportConfig     `yaml:"import"`
	Categorize CategorizeConfig `yaml:"categorize"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	ImportLog  ImportLogConfig  `yaml:"import_log"`
}

// DatabaseConfig selects and tunes the transaction store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"required,oneof=sqlite postgres"`
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"gte=0"`
	ReadyRetries int    `yaml:"ready_retries" validate:"gte=0"` // postgres only
}

// ImportConfig controls file ingestion.
type ImportConfig struct {
	Dir           string `yaml:"dir" validate:"required"`
	Dedupe        bool   `yaml:"dedupe"`
	MarkProcessed bool   `yaml:"mark_processed"`
}

// CategorizeConfig points at an optional keyword rule table.
type CategorizeConfig struct {
	RulesFile string `yaml:"rules_file,omitempty"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// MetricsConfig names the textfile-collector output; empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// ImportLogConfig names the import log CSV; empty disables it.
type ImportLogConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load reads a txray.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "txray.db",
			MaxOpenConns: 1,
			ReadyRetries: 10,
		},
		Import: ImportConfig{
			Dir:    "import",
			Dedupe: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		ImportLog: ImportLogConfig{
			Path: "logs/import-log.csv",
		},
	}
}

// ApplyEnv loads envFile when it exists, without overriding variables
// already set, then applies TXRAY_* overrides to cfg.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg.Database.Driver = getEnv("TXRAY_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("TXRAY_DB_DSN", cfg.Database.DSN)
	cfg.Database.MaxOpenConns = getIntEnv("TXRAY_DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Import.Dir = getEnv("TXRAY_IMPORT_DIR", cfg.Import.Dir)
	cfg.Import.Dedupe = getBoolEnv("TXRAY_IMPORT_DEDUPE", cfg.Import.Dedupe)
	cfg.Log.Level = getEnv("TXRAY_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("TXRAY_LOG_FORMAT", cfg.Log.Format)
	cfg.Metrics.Textfile = getEnv("TXRAY_METRICS_TEXTFILE", cfg.Metrics.Textfile)
	return nil
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Resolve makes relative file paths absolute against baseDir, normally the
// directory holding txray.yaml.
func (c *Config) Resolve(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	if c.Database.Driver == "sqlite" && c.Database.DSN != ":memory:" && !strings.HasPrefix(c.Database.DSN, "file:") {
		c.Database.DSN = abs(c.Database.DSN)
	}
	c.Import.Dir = abs(c.Import.Dir)
	c.Categorize.RulesFile = abs(c.Categorize.RulesFile)
	c.Metrics.Textfile = abs(c.Metrics.Textfile)
	c.ImportLog.Path = abs(c.ImportLog.Path)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
