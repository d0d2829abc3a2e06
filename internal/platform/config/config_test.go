package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaultsWithSQLite(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("ALLOWED_ADSET_IDS", " 111, ,222 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.SQLitePath != "adshift.db" {
		t.Fatalf("unexpected database settings: %+v", cfg)
	}
	if cfg.Interval != time.Minute || cfg.Parallelism != 8 || cfg.AuditLimit != 20 {
		t.Fatalf("unexpected automation defaults: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"111", "222"}, cfg.AllowedIDs); diff != "" {
		t.Fatalf("allowed ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRequiresPostgresDSN(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected POSTGRES_DSN error, got %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("AUTOMATION_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for AUTOMATION_INTERVAL")
	}
}
