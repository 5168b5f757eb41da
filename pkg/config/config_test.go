package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Database.Enabled {
		t.Error("database should default to enabled")
	}
	if cfg.Collaborators.Timeout != 60*time.Second {
		t.Errorf("Collaborators.Timeout = %v", cfg.Collaborators.Timeout)
	}
}

func TestLoad_RequiresPasswordWhenDBEnabled(t *testing.T) {
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_PASSWORD", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DB_PASSWORD")
	}
}

func TestLoad_MemoryOnlyNeedsNoPassword(t *testing.T) {
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PASSWORD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Enabled {
		t.Error("database should be disabled")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "ledger",
		Password: "pw", Name: "ivy_ledger", SSLMode: "require",
	}
	want := "postgres://ledger:pw@db.internal:5433/ivy_ledger?sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %s, want %s", got, want)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_PER_SECOND", "10")
	t.Setenv("COLLABORATOR_TIMEOUT", "5s")
	t.Setenv("PIPELINE_SOURCE_PATH", "/data/transactions.csv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.RateLimitPerSecond != 10 {
		t.Errorf("server overrides not applied: %+v", cfg.Server)
	}
	if cfg.Collaborators.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Collaborators.Timeout)
	}
	if cfg.Pipeline.SourcePath != "/data/transactions.csv" {
		t.Errorf("SourcePath = %s", cfg.Pipeline.SourcePath)
	}
}
