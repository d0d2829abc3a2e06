package db

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite(t *testing.T) {
	database, err := Open("sqlite", "", filepath.Join(t.TempDir(), "adshift.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer database.Close()

	if database.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %s", database.Driver)
	}
	if err := database.DB.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("query sqlite: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "", ""); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
