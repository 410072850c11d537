package basic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "rowbatch/data/db"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(core.DBConfig{Driver: "sqlite3", Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ExecDDL(context.Background(),
		`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT NOT NULL)`))
	return db
}

func TestNormalizeDriver(t *testing.T) {
	assert.Equal(t, DriverSQLite, normalizeDriver(""))
	assert.Equal(t, DriverSQLite, normalizeDriver("SQLite3"))
	assert.Equal(t, DriverPgx, normalizeDriver("postgres"))
	assert.Equal(t, DriverPgx, normalizeDriver("pgx"))
	assert.Equal(t, "mysql", normalizeDriver("mysql"))
}

func TestDB_ExecAndQuery(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO notes (body) VALUES (?), (?)`, "a", "b")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count))
	assert.Equal(t, int64(2), count)
	assert.Equal(t, DriverSQLite, db.GetDialectName())
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO notes (body) VALUES (?)`, "draft")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int64
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count))
	assert.Zero(t, count)
}

func TestTx_NestedBeginIsRejected(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Begin(ctx)
	assert.Error(t, err)
	assert.Equal(t, DriverSQLite, tx.(core.IDialectNameProvider).GetDialectName())
}
