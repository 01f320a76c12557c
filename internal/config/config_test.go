package config_test

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"fsnap/internal/config"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig("/home/u/.local/share/fsnap")
	cfg.Apply.VerifySource = true

	var buf bytes.Buffer
	if err := config.Write(&buf, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := config.Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip mismatch: %+v vs %+v", got, cfg)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig("/base")
	if cfg.LogDir != filepath.Join("/base", "log") {
		t.Errorf("log dir = %s", cfg.LogDir)
	}
	if cfg.CatalogPath != filepath.Join("/base", "catalog.db") {
		t.Errorf("catalog path = %s", cfg.CatalogPath)
	}
	if !cfg.Progress.Enabled {
		t.Error("progress should default on")
	}
}

func TestInitRefusesExisting(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fsnap.toml")
	cfg := config.NewConfig("/base")

	if err := config.Init(path, cfg); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if err := config.Init(path, cfg); err == nil {
		t.Fatal("second init should refuse to clobber")
	}

	loaded, err := config.ReadFromFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if loaded.BaseDir != "/base" {
		t.Errorf("base dir = %s", loaded.BaseDir)
	}
}

func TestReadMalformed(t *testing.T) {
	t.Parallel()
	if _, err := config.Read(bytes.NewBufferString("= not toml =")); err == nil {
		t.Fatal("expected decode error")
	}
}
