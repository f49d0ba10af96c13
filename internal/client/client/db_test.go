package client

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		out = append(out, name)
	}
	require.NoError(t, rows.Err())
	return out
}

func schemaVersion(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var v int64
	require.NoError(t, db.QueryRow(`SELECT MAX(version_id) FROM goose_db_version WHERE is_applied`).Scan(&v))
	return v
}

func TestInitDatabase_Schema(t *testing.T) {
	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "gatherer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, []string{"key", "value"}, columns(t, db, "metadata"))
	assert.Equal(t, []string{"asset_id", "local_path", "hash", "created_at"}, columns(t, db, "asset_cache"))
	assert.Equal(t, int64(2), schemaVersion(t, db))
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestInitDatabase_ReopenKeepsSessionAndCache(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "gatherer.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES ('auth.username', 'surveyor')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO asset_cache (asset_id, local_path, hash) VALUES (7, '/cache/7.jpg', 'ab')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDatabase(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var user string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'auth.username'`).Scan(&user))
	assert.Equal(t, "surveyor", user)

	var created time.Time
	require.NoError(t, db.QueryRowContext(ctx, `SELECT created_at FROM asset_cache WHERE asset_id = 7`).Scan(&created))
	assert.False(t, created.IsZero(), "created_at defaults to insert time")

	assert.Equal(t, int64(2), schemaVersion(t, db))
}

func TestRunMigrations_Twice(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "gatherer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	assert.Equal(t, int64(2), schemaVersion(t, db))
}

func TestInitDatabase_InMemory(t *testing.T) {
	db, err := InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// one connection keeps the migrated in-memory schema visible
	_, err = db.Exec(`INSERT INTO asset_cache (asset_id, local_path, hash) VALUES (1, '/c/1', 'aa')`)
	require.NoError(t, err)
}

func TestInitDatabase_UnopenablePath(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "dir", "gatherer.db")

	_, err := InitDatabase(context.Background(), dsn)
	require.ErrorContains(t, err, "migrate "+dsn)
}
