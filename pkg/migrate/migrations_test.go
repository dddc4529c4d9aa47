package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/easelhouse/paintsip-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	src := migrate.Embedded()
	if err := migrate.ValidateFS(src.FS, src.Dir); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	embedded, err := fs.Glob(src.FS, src.Dir+"/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	disk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(disk) || len(disk) == 0 {
		t.Fatalf("embedded %d files, disk %d", len(embedded), len(disk))
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name":  {"m/001_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"no down":   {"m/20260101000000_init.sql": {Data: []byte("-- +goose Up\n")}},
		"reversed":  {"m/20260101000000_init.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
		"duplicate": {"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}, "m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		if err := migrate.ValidateFS(fsys, "m"); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestSchemaMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_users_table": {
			"CREATE TABLE IF NOT EXISTS users",
			"CONSTRAINT users_email_key UNIQUE (email)",
			"CONSTRAINT users_stripe_account_id_key UNIQUE (stripe_account_id)",
			"DROP TABLE IF EXISTS users",
		},
		"create_canvases_table": {
			"CREATE TABLE IF NOT EXISTS canvases",
			"tags text[] NOT NULL DEFAULT '{}'",
		},
		"create_events_table": {
			"CREATE TABLE IF NOT EXISTS events",
			"CONSTRAINT events_slug_key UNIQUE (slug)",
			"FOREIGN KEY (host_id) REFERENCES users(id) ON DELETE CASCADE",
			"CHECK (status IN ('DRAFT', 'PUBLISHED', 'ENDED', 'CANCELED'))",
			"sales_cutoff_hours integer NOT NULL DEFAULT 48",
		},
		"create_bookings_table": {
			"CREATE TABLE IF NOT EXISTS bookings",
			"CONSTRAINT bookings_checkout_session_id_key UNIQUE (checkout_session_id)",
			"CHECK (status IN ('PENDING', 'PAID', 'CANCELED', 'REFUNDED'))",
			"CHECK (quantity >= 1)",
		},
		"create_outbox_tables": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"WHERE published_at IS NULL",
		},
	}
	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestSeedMigrationShipsFiveCanvases(t *testing.T) {
	content := readMigration(t, "seed_canvases")
	ids := []string{
		"'starry-night-reimagined'",
		"'sunset-beach'",
		"'abstract-florals'",
		"'mountain-majesty'",
		"'wine-and-grapes'",
	}
	for _, id := range ids {
		if strings.Count(content, id) != 2 {
			t.Errorf("expected %s in both up and down sections", id)
		}
	}
	if !strings.Contains(content, "ON CONFLICT (id) DO UPDATE") {
		t.Error("seed must be re-runnable")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Event Tags!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_event_tags.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty name error")
	}
}
