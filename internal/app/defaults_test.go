package app

import (
	"path/filepath"
	"testing"
)

func TestGetDefaults_EnvOverrides(t *testing.T) {
	t.Setenv("FSNAP_CONFIG_PATH", "/custom/fsnap.toml")
	t.Setenv("FSNAP_HOME", "/custom/home")

	defaults, err := GetDefaults()
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if defaults["config_path"] != "/custom/fsnap.toml" {
		t.Errorf("config_path = %s", defaults["config_path"])
	}
	if defaults["base_dir"] != "/custom/home" {
		t.Errorf("base_dir = %s", defaults["base_dir"])
	}
	if defaults["log_dir"] != filepath.Join("/custom/home", "log") {
		t.Errorf("log_dir = %s", defaults["log_dir"])
	}
}

func TestGetDefaults_HomeFallback(t *testing.T) {
	t.Setenv("FSNAP_CONFIG_PATH", "")
	t.Setenv("FSNAP_HOME", "")
	t.Setenv("HOME", "/home/someone")

	defaults, err := GetDefaults()
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if defaults["config_path"] != "/home/someone/.config/fsnap.toml" {
		t.Errorf("config_path = %s", defaults["config_path"])
	}
	if defaults["base_dir"] != "/home/someone/.local/share/fsnap" {
		t.Errorf("base_dir = %s", defaults["base_dir"])
	}
}
