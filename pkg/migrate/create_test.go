package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add waitlist", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260314092653_add_waitlist.sql" {
		t.Fatalf("unexpected name %s", filepath.Base(path))
	}
	body, _ := os.ReadFile(path)
	if !strings.Contains(string(body), "-- rollback add_waitlist") {
		t.Fatalf("template not rendered: %s", body)
	}
	if _, err := createSQLMigration(dir, "add waitlist", now); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected exists error, got %v", err)
	}
}

func TestSourceString(t *testing.T) {
	if got := Embedded().String(); got != "embedded:migrations" {
		t.Fatalf("unexpected %s", got)
	}
	if got := Disk("pkg/migrate/migrations").String(); got != "pkg/migrate/migrations" {
		t.Fatalf("unexpected %s", got)
	}
	if err := (Source{}).prepare(); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
