package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s (%[2]s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s (%[2]s)
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration with the same version into every
// dialect directory under base and returns the created paths:
//
//	<base>/<dialect>/<YYYYMMDDHHMMSS>_<name>.sql
func CreateSQLMigration(base string, name string) ([]string, error) {
	if base == "" {
		return nil, fmt.Errorf("dir is required")
	}
	safe, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}

	version := time.Now().UTC().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", version, safe)

	subdirs := make([]string, 0, len(dialectDirs))
	for _, sub := range dialectDirs {
		subdirs = append(subdirs, sub)
	}
	sort.Strings(subdirs)

	paths := make([]string, 0, len(subdirs))
	for _, sub := range subdirs {
		dir := filepath.Join(base, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", dir, err)
		}
		fullpath := filepath.Join(dir, filename)
		if _, err := os.Stat(fullpath); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", fullpath)
		}
		if err := os.WriteFile(fullpath, []byte(fmt.Sprintf(migrationTemplate, safe, sub)), 0o644); err != nil {
			return nil, fmt.Errorf("write migration %q: %w", fullpath, err)
		}
		paths = append(paths, fullpath)
	}
	return paths, nil
}

func sanitizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	return safe, nil
}
