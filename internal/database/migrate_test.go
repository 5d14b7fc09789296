// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validTokenPurposes must match the ENUM values on auth_tokens.purpose.
// Update this set when adding new ENUM values via ALTER TABLE.
// Current ENUM: ENUM('reset', 'verify')
// Defined in 000003.
var validTokenPurposes = map[string]bool{
	"reset":  true,
	"verify": true,
}

// validThemes must match the ENUM values on profiles.theme.
// Current ENUM: ENUM('light', 'dark')
// Defined in 000004.
var validThemes = map[string]bool{
	"light": true,
	"dark":  true,
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

// TestMigrations_UpDownPairs verifies every .up.sql migration has a matching
// .down.sql. golang-migrate refuses to roll back when a down file is missing,
// which turns a bad deploy into a manual recovery.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_EnumValues scans all .up.sql migration files for INSERT or
// UPDATE statements touching the purpose/theme ENUM columns and validates
// that the values used are valid ENUM members. This prevents the "Data
// truncated for column" crash (Error 1265) when an invalid ENUM value is
// seeded.
func TestMigrations_EnumValues(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	purposePattern := regexp.MustCompile(`purpose\s*[=,]\s*'([^']+)'`)
	themePattern := regexp.MustCompile(`theme\s*[=,]\s*'([^']+)'`)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		content := string(data)

		for _, stmt := range dmlStatements(content) {
			for _, m := range purposePattern.FindAllStringSubmatch(stmt, -1) {
				if !validTokenPurposes[m[1]] {
					t.Errorf("%s uses invalid purpose value %q", filepath.Base(f), m[1])
				}
			}
			for _, m := range themePattern.FindAllStringSubmatch(stmt, -1) {
				if !validThemes[m[1]] {
					t.Errorf("%s uses invalid theme value %q", filepath.Base(f), m[1])
				}
			}
		}
	}
}

// dmlStatements returns the INSERT/UPDATE statements from a migration file,
// skipping DDL (CREATE/ALTER define ENUMs rather than use them).
func dmlStatements(content string) []string {
	var out []string
	for _, stmt := range strings.Split(content, ";") {
		trimmed := strings.TrimSpace(strings.ToUpper(stmt))
		if strings.HasPrefix(trimmed, "INSERT") || strings.HasPrefix(trimmed, "UPDATE") {
			out = append(out, stmt)
		}
	}
	return out
}
