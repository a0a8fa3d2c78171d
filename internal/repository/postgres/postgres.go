// Package postgres implements the repositories on a pgx connection pool.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/confide/internal/repository"
)

// NewStore wires every Postgres repository onto one pool.
func NewStore(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Users:         NewUserStore(pool),
		Narratives:    NewNarrativeStore(pool),
		Relationships: NewRelationshipStore(pool),
		Unlocks:       NewUnlockStore(pool),
		Threads:       NewThreadStore(pool),
		Messages:      NewMessageStore(pool),
	}
}
