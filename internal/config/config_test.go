package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.FootprintTTL != 5*time.Minute {
		t.Errorf("Expected cache ttl 5m, got %v", cfg.Cache.FootprintTTL)
	}
	if cfg.Tracing.Enabled {
		t.Errorf("Expected tracing disabled by default")
	}
	if cfg.MinIO.Enabled {
		t.Errorf("Expected minio disabled by default")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected json log format, got %s", cfg.Log.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Expected db host override, got %s", cfg.Database.Host)
	}
	if cfg.Cache.FootprintTTL != 30*time.Second {
		t.Errorf("Expected 30s ttl, got %v", cfg.Cache.FootprintTTL)
	}
	if !cfg.Tracing.Enabled {
		t.Errorf("Expected tracing enabled")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Log.Level)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Errorf("Expected error without jwt secret")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC"
	if got := d.DSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
