package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3001")
	}
	wantDSN := "root:secret@tcp(localhost:3306)/care_portal?charset=utf8mb4&parseTime=True&loc=Local"
	if cfg.Database.DSN != wantDSN {
		t.Errorf("Database.DSN = %q, want %q", cfg.Database.DSN, wantDSN)
	}
	if cfg.GoalNotifications.Schedule != "0 9 * * *" {
		t.Errorf("Schedule = %q, want %q", cfg.GoalNotifications.Schedule, "0 9 * * *")
	}
	if cfg.GoalNotifications.OnTrackThreshold != 80 || cfg.GoalNotifications.OverdueThreshold != 90 {
		t.Errorf("thresholds = %v/%v, want 80/90",
			cfg.GoalNotifications.OnTrackThreshold, cfg.GoalNotifications.OverdueThreshold)
	}
	if cfg.GoalNotifications.LeaseTTL != 30*time.Minute {
		t.Errorf("LeaseTTL = %v, want 30m", cfg.GoalNotifications.LeaseTTL)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

func TestLoadConfigPostgresAndOverride(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_USERNAME", "care")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := "host=localhost port=5432 user=care password=pw dbname=care_portal sslmode=disable"
	if cfg.Database.DSN != want {
		t.Errorf("Database.DSN = %q, want %q", cfg.Database.DSN, want)
	}

	t.Setenv("DATABASE_URL", "postgres://care@db/care")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://care@db/care" {
		t.Errorf("Database.DSN = %q, want DATABASE_URL value", cfg.Database.DSN)
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DB_DRIVER", "oracle"},
		{"JWT_EXPIRATION_MINUTES", "soon"},
		{"GOAL_ON_TRACK_THRESHOLD", "most"},
		{"GOAL_NOTIFICATIONS_ENABLED", "maybe"},
		{"DB_CONN_MAX_LIFETIME", "forever"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() with %s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}
