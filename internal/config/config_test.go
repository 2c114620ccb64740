package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aryonoco/divban/internal/ids"
)

type testConfig struct {
	Base
	Extra string `toml:"extra"`
}

func writeTemp(t *testing.T, content string) ids.AbsolutePath {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return ids.MustAbsolutePath(path)
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, `
divbanConfigSchemaVersion = "1.0.0"
extra = "hello"

[paths]
dataDir = "/srv/immich"

[network]
host = "127.0.0.1"
port = 2283
`)
	cfg, err := Load[testConfig](path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataDir != "/srv/immich" || cfg.Extra != "hello" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Network == nil || cfg.Network.Port != 2283 {
		t.Errorf("got network %+v", cfg.Network)
	}
}

func TestLoadRejectsMissingSchemaVersion(t *testing.T) {
	path := writeTemp(t, `
[paths]
dataDir = "/srv/immich"
`)
	if _, err := Load[testConfig](path); err == nil {
		t.Fatalf("expected missing schema version to fail")
	}
}

func TestLoadRejectsUnsupportedSchemaVersion(t *testing.T) {
	path := writeTemp(t, `
divbanConfigSchemaVersion = "9.9.9"
[paths]
dataDir = "/srv/immich"
`)
	if _, err := Load[testConfig](path); err == nil {
		t.Fatalf("expected unsupported schema version to fail")
	}
}

func TestLoadRejectsRelativeDataDir(t *testing.T) {
	path := writeTemp(t, `
divbanConfigSchemaVersion = "1.0.0"
[paths]
dataDir = "srv/immich"
`)
	if _, err := Load[testConfig](path); err == nil {
		t.Fatalf("expected relative dataDir to fail")
	}
}

func TestLoadRejectsBadCompression(t *testing.T) {
	path := writeTemp(t, `
divbanConfigSchemaVersion = "1.0.0"
[paths]
dataDir = "/srv/immich"
[backup]
compression = "lz4"
`)
	if _, err := Load[testConfig](path); err == nil {
		t.Fatalf("expected invalid compression to fail")
	}
}

func TestCompressionOrDefault(t *testing.T) {
	if got := (Backup{}).CompressionOrDefault(); got != "gzip" {
		t.Errorf("got %q, want gzip", got)
	}
	if got := (Backup{Compression: "zstd"}).CompressionOrDefault(); got != "zstd" {
		t.Errorf("got %q, want zstd", got)
	}
}
