package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	db, err := OpenSQLite(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, "confide.db"))
	require.NoError(t, err)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys;").Scan(&fk))
	assert.Equal(t, 1, fk)

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version;").Scan(&version))
	assert.Equal(t, SQLiteSchemaVersion, version)

	for _, table := range []string{"users", "narratives", "relationships", "unlocks", "threads", "thread_messages"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s missing", table)
	}
}

func TestOpenSQLite_Reopen(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenSQLite(dir)
	require.NoError(t, err)
	_, err = first.Exec("INSERT INTO users (id, display_name, created_at) VALUES ('u1', 'ana', 0)")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSQLite(dir)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestThreadPairConstraints(t *testing.T) {
	db, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO users (id, display_name, created_at) VALUES ('a', 'a', 0), ('b', 'b', 0)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO threads (id, user_a, user_b, created_at) VALUES ('t1', 'a', 'b', 0)`)
	require.NoError(t, err)

	// Same unordered pair again.
	_, err = db.Exec(`INSERT INTO threads (id, user_a, user_b, created_at) VALUES ('t2', 'a', 'b', 0)`)
	assert.Error(t, err)

	// Reversed order violates the canonical check.
	_, err = db.Exec(`INSERT INTO threads (id, user_a, user_b, created_at) VALUES ('t3', 'b', 'a', 0)`)
	assert.Error(t, err)
}
