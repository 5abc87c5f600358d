package sqlite_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/teststand"
	"github.com/sagarc03/teststand/config"
	"github.com/sagarc03/teststand/database/sqlite"
)

func newProvisioner() *sqlite.Provisioner {
	return sqlite.New(sqlite.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func scopedConfig(url string) *config.Tree {
	return config.New(map[string]any{
		"url":             url,
		"max_connections": 4,
		"connect_timeout": 5,
	})
}

func tableExists(t *testing.T, path, table string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestProvisioner_CreateDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	url := "sqlite://" + filepath.Join(dir, "app.db")
	p := newProvisioner()

	name, err := p.CreateDatabase(ctx, scopedConfig(url))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "app_"), name)
	assert.Equal(t, ".db", filepath.Ext(name))
	assert.FileExists(t, filepath.Join(dir, name))

	// The configured database is never touched.
	assert.NoFileExists(t, filepath.Join(dir, "app.db"))

	other, err := p.CreateDatabase(ctx, scopedConfig(url))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}

func TestProvisioner_MigrateDatabase(t *testing.T) {
	ctx := context.Background()
	p := newProvisioner()

	t.Run("applies migrations and rewrites url", func(t *testing.T) {
		dir := t.TempDir()
		url := "sqlite://" + filepath.Join(dir, "app.db") + "?_pragma=foreign_keys(1)"

		name, err := p.CreateDatabase(ctx, scopedConfig(url))
		require.NoError(t, err)

		migrated, err := p.MigrateDatabase(ctx, name, "testdata/ok", scopedConfig(url))
		require.NoError(t, err)
		assert.Equal(t, "sqlite://"+filepath.Join(dir, name)+"?_pragma=foreign_keys(1)", migrated)
		assert.True(t, tableExists(t, filepath.Join(dir, name), "t"))

		// Migrating again is a no-op
		_, err = p.MigrateDatabase(ctx, name, "testdata/ok", scopedConfig(url))
		assert.NoError(t, err)
	})

	t.Run("bare path", func(t *testing.T) {
		dir := t.TempDir()
		url := filepath.Join(dir, "data.sqlite")

		name, err := p.CreateDatabase(ctx, scopedConfig(url))
		require.NoError(t, err)
		assert.Equal(t, ".sqlite", filepath.Ext(name))

		migrated, err := p.MigrateDatabase(ctx, name, "testdata/ok", scopedConfig(url))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, name), migrated)
	})

	t.Run("broken migration leaves the database in place", func(t *testing.T) {
		dir := t.TempDir()
		url := "sqlite://" + filepath.Join(dir, "app.db")

		name, err := p.CreateDatabase(ctx, scopedConfig(url))
		require.NoError(t, err)

		_, err = p.MigrateDatabase(ctx, name, "testdata/broken", scopedConfig(url))
		require.Error(t, err)
		assert.ErrorIs(t, err, teststand.ErrMigrate)

		assert.FileExists(t, filepath.Join(dir, name))
		assert.True(t, tableExists(t, filepath.Join(dir, name), "t"))
		assert.False(t, tableExists(t, filepath.Join(dir, name), "broken"))
	})

	t.Run("empty migration directory", func(t *testing.T) {
		dir := t.TempDir()
		url := "sqlite://" + filepath.Join(dir, "app.db")

		name, err := p.CreateDatabase(ctx, scopedConfig(url))
		require.NoError(t, err)

		_, err = p.MigrateDatabase(ctx, name, "testdata/empty", scopedConfig(url))
		assert.NoError(t, err)
	})

	t.Run("missing migration directory", func(t *testing.T) {
		dir := t.TempDir()
		url := "sqlite://" + filepath.Join(dir, "app.db")

		name, err := p.CreateDatabase(ctx, scopedConfig(url))
		require.NoError(t, err)

		_, err = p.MigrateDatabase(ctx, name, "testdata/missing", scopedConfig(url))
		assert.ErrorIs(t, err, teststand.ErrMigrate)
	})

	t.Run("database never created", func(t *testing.T) {
		dir := t.TempDir()
		url := "sqlite://" + filepath.Join(dir, "app.db")

		_, err := p.MigrateDatabase(ctx, "app_missing.db", "testdata/ok", scopedConfig(url))
		assert.ErrorIs(t, err, teststand.ErrPool)
		assert.NoFileExists(t, filepath.Join(dir, "app_missing.db"))
	})
}

func TestProvisioner_Errors(t *testing.T) {
	ctx := context.Background()
	p := newProvisioner()

	tests := []struct {
		name string
		cfg  *config.Tree
		want error
	}{
		{name: "missing url", cfg: config.New(map[string]any{"max_connections": 1, "connect_timeout": 1}), want: teststand.ErrPool},
		{name: "url without slash", cfg: scopedConfig("app.db"), want: teststand.ErrConfig},
		{name: "in-memory database", cfg: scopedConfig("sqlite://:memory:"), want: teststand.ErrConfig},
		{name: "directory url", cfg: scopedConfig("sqlite://" + os.TempDir() + "/"), want: teststand.ErrConfig},
		{name: "missing parent directory", cfg: scopedConfig("sqlite://" + filepath.Join(os.TempDir(), "teststand-missing-dir", "nested", "app.db")), want: teststand.ErrPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.CreateDatabase(ctx, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
