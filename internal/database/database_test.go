package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrim.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{"players", "sessions", "match_records", "match_deltas"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrim.db")

	first, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestWithTx(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scrim.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	now := time.Now()

	insert := func(tx *sql.Tx, ref string) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO players (ref, display_name, rating, created_at, updated_at) VALUES (?, ?, 1000, ?, ?)`, ref, ref, now, now)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM players`).Scan(&n))
		return n
	}

	boom := errors.New("boom")
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		require.NoError(t, insert(tx, "A"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count())

	require.NoError(t, WithTx(ctx, db, func(tx *sql.Tx) error { return insert(tx, "B") }))
	assert.Equal(t, 1, count())
}
