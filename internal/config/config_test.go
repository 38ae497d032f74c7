package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the env vars without which Load fails.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/ludex")
	t.Setenv("CMS_BASE_URL", "http://localhost:9000")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr())
	}
	if cfg.Import.MaxFileSize != 10485760 {
		t.Errorf("Import.MaxFileSize = %d, want 10485760", cfg.Import.MaxFileSize)
	}
	if cfg.Import.MaxConcurrent != 4 {
		t.Errorf("Import.MaxConcurrent = %d, want 4", cfg.Import.MaxConcurrent)
	}
	if cfg.Import.Mode != "lenient" {
		t.Errorf("Import.Mode = %q, want lenient", cfg.Import.Mode)
	}
	if cfg.CMS.Timeout != 30*time.Second {
		t.Errorf("CMS.Timeout = %v, want 30s", cfg.CMS.Timeout)
	}
	if !cfg.Rate.Enabled {
		t.Error("Rate.Enabled should default to true")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %q/%q", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("IMPORT_MODE", "strict")
	t.Setenv("IMPORT_TIMEOUT", "5m")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Import.Mode != "strict" {
		t.Errorf("Import.Mode = %q, want strict", cfg.Import.Mode)
	}
	if cfg.Import.Timeout != 5*time.Minute {
		t.Errorf("Import.Timeout = %v, want 5m", cfg.Import.Timeout)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled should be false")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CMS_BASE_URL", "http://localhost:9000")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("Load without DATABASE_URL = %v, want required error", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "bad integer",
			env:  map[string]string{"SERVER_PORT": "not-a-port"},
			want: "invalid value for SERVER_PORT",
		},
		{
			name: "bad duration",
			env:  map[string]string{"IMPORT_TIMEOUT": "soon"},
			want: "invalid value for IMPORT_TIMEOUT",
		},
		{
			name: "bad boolean",
			env:  map[string]string{"RATE_LIMIT_ENABLED": "maybe"},
			want: "invalid value for RATE_LIMIT_ENABLED",
		},
		{
			name: "port out of range",
			env:  map[string]string{"SERVER_PORT": "70000"},
			want: "SERVER_PORT",
		},
		{
			name: "bad import mode",
			env:  map[string]string{"IMPORT_MODE": "chaotic"},
			want: "IMPORT_MODE",
		},
		{
			name: "bad cms url",
			env:  map[string]string{"CMS_BASE_URL": "localhost:9000"},
			want: "CMS_BASE_URL",
		},
		{
			name: "bad log level",
			env:  map[string]string{"LOG_LEVEL": "loud"},
			want: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestStringMasksSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("CMS_API_KEY", "super-secret-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "postgres://") {
		t.Error("String() must mask the database URL")
	}
	if strings.Contains(s, "super-secret-key") {
		t.Error("String() must mask the API key")
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Error("String() should mark masked fields")
	}
}
