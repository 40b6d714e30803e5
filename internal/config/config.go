package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"invoice-desk/internal/logger"
)

// EnvConfigPath names the environment variable pointing at the YAML file.
const EnvConfigPath = "INVOICE_DESK_CONFIG"

// Config is the process configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Paths    PathsConfig    `yaml:"paths"`
	Backup   BackupConfig   `yaml:"backup"`
	EInvoice EInvoiceConfig `yaml:"einvoice"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig locates the record store.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PathsConfig holds the file system layout.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	DocumentsDir string `yaml:"documents_dir"`
	BackupsDir   string `yaml:"backups_dir"`
}

// BackupConfig controls automatic backups.
type BackupConfig struct {
	Keep       int  `yaml:"keep"`
	AutoOnExit bool `yaml:"auto_on_exit"`
}

// EInvoiceConfig controls the embedded XML.
type EInvoiceConfig struct {
	EmbedByDefault bool `yaml:"embed_by_default"`
}

// LogConfig mirrors logger.LogConfig for YAML.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	TimeFormat string `yaml:"time_format"`
	Output     string `yaml:"output"`
}

// MetricsConfig controls the textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Database: DatabaseConfig{
			URL:          "postgres://localhost:5432/invoice_desk?sslmode=disable",
			MaxOpenConns: 4,
		},
		Paths: PathsConfig{
			DataDir:      dataDir,
			DocumentsDir: defaultDocumentsDir(),
			BackupsDir:   filepath.Join(dataDir, "backups"),
		},
		Backup:   BackupConfig{Keep: 10, AutoOnExit: false},
		EInvoice: EInvoiceConfig{EmbedByDefault: true},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			TimeFormat: time.RFC3339,
			Output:     "stderr",
		},
	}
}

// Load reads defaults, then the YAML file at path (or $INVOICE_DESK_CONFIG), then env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.URL = getenvDefault("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = getenvIntDefault("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Paths.DataDir = getenvDefault("DATA_DIR", c.Paths.DataDir)
	c.Paths.DocumentsDir = getenvDefault("DOCUMENTS_DIR", c.Paths.DocumentsDir)
	c.Paths.BackupsDir = getenvDefault("BACKUPS_DIR", c.Paths.BackupsDir)
	c.Backup.Keep = getenvIntDefault("BACKUP_KEEP", c.Backup.Keep)
	c.Log.Level = getenvDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenvDefault("LOG_FORMAT", c.Log.Format)
	c.Log.TimeFormat = getenvDefault("LOG_TIME_FORMAT", c.Log.TimeFormat)
	c.Log.Output = getenvDefault("LOG_OUTPUT", c.Log.Output)
	c.Metrics.Textfile = getenvDefault("METRICS_TEXTFILE", c.Metrics.Textfile)
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Paths.DocumentsDir == "" {
		return errors.New("paths.documents_dir is required")
	}
	if c.Paths.BackupsDir == "" {
		return errors.New("paths.backups_dir is required")
	}
	if c.Backup.Keep < 1 {
		return fmt.Errorf("backup.keep must be at least 1, got %d", c.Backup.Keep)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: c.Log.TimeFormat,
		Output:     c.Log.Output,
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "Rechnungsprogramm")
	}
	return filepath.FromSlash("var/invoice-desk")
}

func defaultDocumentsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Documents", "Rechnungen")
	}
	return filepath.FromSlash("var/invoice-desk/Rechnungen")
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
