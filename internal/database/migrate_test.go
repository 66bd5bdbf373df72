// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// eventColumns must match the columns the events repository selects.
// Update this list together with eventCols in internal/plugins/events.
var eventColumns = []string{
	"id", "owner_id", "task_id", "title", "start_at", "end_at", "color",
	"private", "billable", "created_at", "updated_at",
}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// migrationNameRe matches golang-migrate file names.
var migrationNameRe = regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.(up|down)\.sql$`)

// TestMigrations_Pairs checks that every migration has both directions and
// that versions are contiguous from 000001.
func TestMigrations_Pairs(t *testing.T) {
	dir := migrationsDir(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		m := migrationNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			t.Errorf("unexpected file in migrations dir: %s", e.Name())
			continue
		}
		if m[2] == "up" {
			ups[m[1]] = true
		} else {
			downs[m[1]] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migration files found")
	}

	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}
	for i := 1; i <= len(ups); i++ {
		v := fmt.Sprintf("%06d", i)
		if !ups[v] {
			t.Errorf("migration versions are not contiguous: %s missing", v)
		}
	}
}

// TestMigrations_EventColumns checks that the calendar_events table created
// by the migrations has every column the repository reads.
func TestMigrations_EventColumns(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	var schema strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		if strings.Contains(string(data), "calendar_events") {
			schema.Write(data)
		}
	}
	if schema.Len() == 0 {
		t.Fatal("no migration creates calendar_events")
	}

	for _, col := range eventColumns {
		re := regexp.MustCompile(`(?m)^\s*` + col + `\s+[A-Z]`)
		if !re.MatchString(schema.String()) {
			t.Errorf("calendar_events is missing column %q", col)
		}
	}
}
