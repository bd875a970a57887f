package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.TickInterval() != 100*time.Millisecond || cfg.Catalog.Driver != "memory" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	src := `
addr: ":9090"
tick_interval_ms: 50
scale_by_elapsed: true
journal_dir: /tmp/journal
catalog:
  driver: sqlite
  dsn: /tmp/rooms.db
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.TickInterval() != 50*time.Millisecond || !cfg.ScaleByElapsed {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Catalog.Driver != "sqlite" || cfg.Catalog.DSN != "/tmp/rooms.db" || cfg.JournalDir != "/tmp/journal" {
		t.Fatalf("cfg = %+v", cfg)
	}
	// 未出现在文件里的字段保留默认值
	if cfg.SendQueue != 64 || cfg.WriteTimeout() != 5*time.Second {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"tick":          "tick_interval_ms: 0\n",
		"driver":        "catalog:\n  driver: redis\n",
		"missing dsn":   "catalog:\n  driver: mongo\n",
		"bad yaml":      "addr: [\n",
		"negative send": "send_queue: -1\n",
		"log level":     "log_level: loud\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "server.yaml")
			if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), "server.yaml") {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
