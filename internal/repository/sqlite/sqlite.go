// Package sqlite implements the repositories on an embedded SQLite file.
// It backs local development (DB_DRIVER=sqlite) and the test suites, and
// relies on the same unique constraints as the Postgres schema.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lalith-99/confide/internal/repository"
)

// NewStore wires every SQLite repository onto one handle.
func NewStore(db *sql.DB) repository.Store {
	return repository.Store{
		Users:         NewUserStore(db),
		Narratives:    NewNarrativeStore(db),
		Relationships: NewRelationshipStore(db),
		Unlocks:       NewUnlockStore(db),
		Threads:       NewThreadStore(db),
		Messages:      NewMessageStore(db),
	}
}

// Timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeTags never fails: a malformed column reads as no tags.
func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
