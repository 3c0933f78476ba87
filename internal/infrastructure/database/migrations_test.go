package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testSource() Source {
	return Source{
		Dir: "sql",
		FS: fstest.MapFS{
			"sql/20260301_090000_create_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
			"sql/20260301_090000_create_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
			"sql/20260302_100000_add_gadgets.up.sql":      {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
			"sql/README.md":                               {Data: []byte("ignored")},
		},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrateFrom(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.MigrateFrom(ctx, testSource()); err != nil {
		t.Fatalf("MigrateFrom() error = %v", err)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("expected both tables to be created")
	}

	applied, pending, err := db.MigrationStatus(ctx, testSource())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2/0", len(applied), len(pending))
	}

	// Idempotent
	if err := db.MigrateFrom(ctx, testSource()); err != nil {
		t.Fatalf("second MigrateFrom() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := testSource()

	if err := db.MigrateFrom(ctx, src); err != nil {
		t.Fatalf("MigrateFrom() error = %v", err)
	}

	// Latest migration has no down file.
	if err := db.MigrateDown(ctx, src); err == nil {
		t.Fatal("MigrateDown() expected error for migration without down SQL")
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = '20260302_100000'"); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	if err := db.MigrateDown(ctx, src); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "widgets") {
		t.Error("widgets should be dropped")
	}
}

func TestMigrate_NoSource(t *testing.T) {
	db := openTestDB(t)
	if err := db.MigrateFrom(context.Background(), Source{}); err != nil {
		t.Errorf("MigrateFrom(empty) error = %v", err)
	}
}

func TestLoad_MissingUp(t *testing.T) {
	src := Source{FS: fstest.MapFS{
		"20260301_090000_orphan.down.sql": {Data: []byte("DROP TABLE x;")},
	}}
	if _, err := load(src); err == nil {
		t.Error("load() expected error for down-only migration")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_090000_create_profiles.up.sql", "20260301_090000", "create_profiles", true, true},
		{"20260301_090000_create_profiles.down.sql", "20260301_090000", "create_profiles", false, true},
		{"20260301_090000.up.sql", "20260301_090000", "20260301_090000", true, true},
		{"create_profiles.up.sql", "", "", false, false},
		{"20260301_090000_x.sql", "", "", false, false},
		{"20260301_090000_x.up.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
					tt.filename, version, name, up, ok, tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
			}
		})
	}
}
