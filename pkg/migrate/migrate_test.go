package migrate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestDirFor(t *testing.T) {
	dir, err := DirFor("migrations", "sqlite3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("migrations", "sqlite"), dir)

	_, err = DirFor("migrations", "mysql")
	assert.Error(t, err)
}

func TestMigrationsApplyOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, "sqlite3", "migrations", "up"))

	for _, table := range []string{"cart_states", "orders", "order_items"} {
		assert.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}

	require.NoError(t, MigrateToVersion(ctx, sqlDB, "sqlite3", "migrations", "20240501090000"))
	assert.False(t, conn.Migrator().HasTable("orders"))
	assert.True(t, conn.Migrator().HasTable("cart_states"))
}

func TestEmbeddedMigrationsApply(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_embedded_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Run(context.Background(), sqlDB, "sqlite3", Embedded, "up"))
	assert.True(t, conn.Migrator().HasTable("orders"))
}

func TestMigrationTreeIsConsistent(t *testing.T) {
	require.NoError(t, ValidateTree("migrations"))
}

func TestCreateSQLMigration(t *testing.T) {
	base := t.TempDir()
	paths, err := CreateSQLMigration(base, "Add Cart Index!")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, path := range paths {
		assert.True(t, strings.HasSuffix(path, "_add_cart_index.sql"), path)
	}
	require.NoError(t, ValidateTree(base))

	_, err = CreateSQLMigration(base, "!!!")
	assert.Error(t, err)
}

func TestValidateTreeDetectsDrift(t *testing.T) {
	base := t.TempDir()
	_, err := CreateSQLMigration(base, "first")
	require.NoError(t, err)
	extra := filepath.Join(base, "sqlite", "20990101000000_only_sqlite.sql")
	require.NoError(t, os.WriteFile(extra, []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateTree(base))
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240101000000_x.sql"), []byte("-- +goose Up"), 0o644))
	assert.Error(t, ValidateDir(dir), "missing down section")
}

func TestMaybeAutoRun(t *testing.T) {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{DB: config.DBConfig{Driver: "sqlite", DSN: "file::memory:"}}

	client, err := db.New(ctx, cfg.DB, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, MaybeAutoRun(ctx, cfg, logg, client))
	assert.False(t, client.DB().Migrator().HasTable("orders"), "auto-run is opt in")

	cfg.DB.AutoMigrate = true
	require.NoError(t, MaybeAutoRun(ctx, cfg, logg, client))
	assert.True(t, client.DB().Migrator().HasTable("orders"))
	assert.True(t, client.DB().Migrator().HasTable("cart_states"))
}
