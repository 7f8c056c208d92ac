package metadata

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, ok, err := r.Get(context.Background(), KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestPut_ThenReplace(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	r.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, r.Put(ctx, KeyToken, "aaaa"))
	r.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, r.Put(ctx, KeyToken, "bbbb"))

	v, ok, err := r.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bbbb", v)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	assert.Equal(t, 1, n, "upsert must not duplicate the key")
}

func TestPut_EmptyValueIsPresent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "k", ""))

	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestDelete_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, KeyToken, "x"))
	require.NoError(t, r.Delete(ctx, KeyToken))
	require.NoError(t, r.Delete(ctx, KeyToken))

	_, ok, err := r.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClosedDB_ErrorsNameTheKey(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, _, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, `get "k"`)
	require.ErrorContains(t, r.Put(ctx, "k", "v"), `put "k"`)
	require.ErrorContains(t, r.Delete(ctx, "k"), `delete "k"`)
}

func TestPut_WritesUTCTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	r := NewSQLiteRepository(db)
	r.now = func() time.Time { return at }

	mock.ExpectExec(`INSERT INTO metadata`).
		WithArgs(KeyToken, "tok", at.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, r.Put(context.Background(), KeyToken, "tok"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ScanErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs(KeyToken).WillReturnError(boom)

	_, ok, err := NewSQLiteRepository(db).Get(context.Background(), KeyToken)
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)
}
