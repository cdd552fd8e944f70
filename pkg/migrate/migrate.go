package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk tree used by create and validate.
const DefaultDir = "pkg/migrate/migrations"

// Embedded selects the migrations compiled into the binary when passed as base.
const Embedded = ""

//go:embed migrations
var embedded embed.FS

// Dialect-specific migrations live in <dir>/<subdir>.
var dialectDirs = map[string]string{
	"postgres": "postgres",
	"sqlite3":  "sqlite",
}

// DirFor resolves the migrations directory for a goose dialect.
func DirFor(base, dialect string) (string, error) {
	sub, ok := dialectDirs[dialect]
	if !ok {
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	return filepath.Join(base, sub), nil
}

func prepare(dialect, base string) (string, error) {
	if base == Embedded {
		goose.SetBaseFS(embedded)
		base = "migrations"
	} else {
		goose.SetBaseFS(nil)
	}
	dir, err := DirFor(base, dialect)
	if err != nil {
		return "", err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	return dir, nil
}

// Run executes a goose command against db. base is a directory on disk or Embedded.
func Run(ctx context.Context, db *sql.DB, dialect, base string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	dir, err := prepare(dialect, base)
	if err != nil {
		return err
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, base string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	dir, err := prepare(dialect, base)
	if err != nil {
		return err
	}

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil

	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil

	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
