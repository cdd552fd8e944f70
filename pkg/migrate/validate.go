package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateTree validates every dialect directory under base and checks that all dialects
// carry the same migration files.
func ValidateTree(base string) error {
	if base == "" {
		return fmt.Errorf("dir is required")
	}
	var (
		reference     []string
		referenceName string
	)
	subdirs := make([]string, 0, len(dialectDirs))
	for _, sub := range dialectDirs {
		subdirs = append(subdirs, sub)
	}
	sort.Strings(subdirs)

	for _, sub := range subdirs {
		dir := filepath.Join(base, sub)
		files, err := validateDir(dir)
		if err != nil {
			return err
		}
		if reference == nil {
			reference, referenceName = files, sub
			continue
		}
		if strings.Join(files, ",") != strings.Join(reference, ",") {
			return fmt.Errorf("migrations in %q differ from %q", sub, referenceName)
		}
	}
	return nil
}

// ValidateDir validates migration filenames + basic SQL headers in a single directory.
func ValidateDir(dir string) error {
	_, err := validateDir(dir)
	return err
}

func validateDir(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	files := []string{}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", full, err)
		}

		txt := string(b)
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(txt, marker) {
				return nil, fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}
