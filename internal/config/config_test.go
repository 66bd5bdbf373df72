package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeline.PixelsPerHour != 60 || cfg.Timeline.StartHour != 0 || cfg.Timeline.EndHour != 23 {
		t.Errorf("unexpected grid defaults: %+v", cfg.Timeline)
	}
	if cfg.Workdeck.IsRemote() {
		t.Error("no WORKDECK_API_URL should mean the local event store")
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != cfg.BaseURL {
		t.Errorf("CORS origins should default to BaseURL, got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKDECK_API_URL", "https://api.workdeck.com/v1/")
	t.Setenv("TIMELINE_PIXELS_PER_HOUR", "80")
	t.Setenv("TIMELINE_START_HOUR", "7")
	t.Setenv("TIMELINE_END_HOUR", "19")
	t.Setenv("TIMELINE_TIMEZONE", "Europe/Madrid")
	t.Setenv("TIMELINE_IDLE_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workdeck.APIURL != "https://api.workdeck.com/v1" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Workdeck.APIURL)
	}
	if !cfg.Workdeck.IsRemote() {
		t.Error("expected remote mode")
	}
	if cfg.Timeline.PixelsPerHour != 80 || cfg.Timeline.StartHour != 7 || cfg.Timeline.EndHour != 19 {
		t.Errorf("unexpected grid: %+v", cfg.Timeline)
	}
	if cfg.Timeline.IdleTTL != 5*time.Minute {
		t.Errorf("expected 5m idle TTL, got %v", cfg.Timeline.IdleTTL)
	}
	if got := cfg.Timeline.Location().String(); got != "Europe/Madrid" {
		t.Errorf("expected Europe/Madrid, got %s", got)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Errorf("expected empty items dropped, got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoad_RejectsBadGrid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero scale", "TIMELINE_PIXELS_PER_HOUR", "0"},
		{"end past 23", "TIMELINE_END_HOUR", "24"},
		{"start after end", "TIMELINE_START_HOUR", "23.5"},
		{"start off the quarter hour", "TIMELINE_START_HOUR", "7.1"},
		{"end off the quarter hour", "TIMELINE_END_HOUR", "18.3"},
		{"unknown zone", "TIMELINE_TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_AcceptsQuarterHourGrid(t *testing.T) {
	t.Setenv("TIMELINE_START_HOUR", "7.25")
	t.Setenv("TIMELINE_END_HOUR", "18.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeline.StartHour != 7.25 || cfg.Timeline.EndHour != 18.75 {
		t.Errorf("unexpected grid %+v", cfg.Timeline)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss", Name: "planner"}
	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db:3306)") {
		t.Errorf("expected default port appended, got %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime, got %s", dsn)
	}

	d.dsnOverride = "x:y@tcp(h:1)/z"
	if d.DSN() != "x:y@tcp(h:1)/z" {
		t.Error("DATABASE_URL must be used as-is")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       slog.Level
	}{
		{"production", "", slog.LevelInfo},
		{"development", "", slog.LevelDebug},
		{"production", "WARN", slog.LevelWarn},
		{"development", "error", slog.LevelError},
		{"development", "info", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{Env: tt.env, LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("env=%s level=%q: expected %v, got %v", tt.env, tt.level, tt.want, got)
		}
	}
}
