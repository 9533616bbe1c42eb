package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/config"
)

func TestGetDSN(t *testing.T) {
	dsn := GetDSN(config.DatabaseConfig{User: "u", Pass: "p", Host: "db", Port: "3306", Name: "todo"})
	assert.Equal(t, "u:p@tcp(db:3306)/todo?parseTime=true&loc=UTC&clientFoundRows=true", dsn)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/x.db")
	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "busy_timeout")
}

func TestLoadMigrations(t *testing.T) {
	for _, dialect := range []string{"mysql", "sqlite"} {
		t.Run(dialect, func(t *testing.T) {
			migrations, err := loadMigrations(dialect)
			require.NoError(t, err)
			require.NotEmpty(t, migrations)
			assert.Equal(t, 1, migrations[0].Version)
			assert.Contains(t, migrations[0].Up, "CREATE TABLE IF NOT EXISTS items")
		})
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (id INT);\n\n CREATE TABLE b (id INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, stmts)
}

func TestRunMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "sqlite", dialect.Name)

	applied, err := RunMigrations(ctx, db, dialect.Name)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	applied, err = RunMigrations(ctx, db, dialect.Name)
	require.NoError(t, err)
	assert.Empty(t, applied, "second run must be a no-op")

	for _, table := range []string{"users", "lists", "items"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	version, err := RollbackMigration(ctx, db, dialect.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = 'items'").Scan(&count))
	assert.Zero(t, count)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, _, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
