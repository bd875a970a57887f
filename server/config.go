package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config 进程配置；文件可选，缺省字段使用 defaults
type Config struct {
	Addr           string        `yaml:"addr"`
	LogFile        string        `yaml:"log_file"`
	LogLevel       string        `yaml:"log_level"`
	TickIntervalMs int           `yaml:"tick_interval_ms"`
	ScaleByElapsed bool          `yaml:"scale_by_elapsed"`
	SendQueue      int           `yaml:"send_queue"`
	WriteTimeoutMs int           `yaml:"write_timeout_ms"`
	ReadTimeoutMs  int           `yaml:"read_timeout_ms"`
	JournalDir     string        `yaml:"journal_dir"`
	Catalog        CatalogConfig `yaml:"catalog"`
}

// CatalogConfig 房间目录存储
type CatalogConfig struct {
	Driver   string `yaml:"driver"` // memory | sqlite | mongo
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		LogFile:        "app.log",
		LogLevel:       "debug",
		TickIntervalMs: int(DefaultTickInterval / time.Millisecond),
		SendQueue:      64,
		WriteTimeoutMs: 5000,
		ReadTimeoutMs:  60000,
		Catalog:        CatalogConfig{Driver: "memory"},
	}
}

// LoadConfig 读取 YAML 配置；path 为空时返回默认配置
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be > 0")
	}
	if c.SendQueue <= 0 {
		return fmt.Errorf("send_queue must be > 0")
	}
	if c.WriteTimeoutMs <= 0 || c.ReadTimeoutMs <= 0 {
		return fmt.Errorf("write_timeout_ms and read_timeout_ms must be > 0")
	}
	switch c.Catalog.Driver {
	case "", "memory":
	case "sqlite", "mongo":
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for driver %q", c.Catalog.Driver)
		}
	default:
		return fmt.Errorf("unknown catalog.driver %q", c.Catalog.Driver)
	}
	return nil
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}
