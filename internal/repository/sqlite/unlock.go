package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/models"
)

type UnlockStore struct {
	db *sql.DB
}

func NewUnlockStore(db *sql.DB) *UnlockStore {
	return &UnlockStore{db: db}
}

func (s *UnlockStore) UpsertPaid(ctx context.Context, payerID, targetID uuid.UUID, provider, providerRef string) error {
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unlocks (payer_id, target_id, paid, provider, provider_ref, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT (payer_id, target_id) DO UPDATE SET
			paid = 1,
			provider = excluded.provider,
			provider_ref = excluded.provider_ref,
			updated_at = excluded.updated_at`,
		payerID, targetID, provider, providerRef, now, now)
	if err != nil {
		return fmt.Errorf("upsert unlock: %w", err)
	}
	return nil
}

func (s *UnlockStore) Get(ctx context.Context, payerID, targetID uuid.UUID) (*models.Unlock, error) {
	var (
		u                models.Unlock
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payer_id, target_id, paid, provider, provider_ref, created_at, updated_at
		FROM unlocks WHERE payer_id = ? AND target_id = ?`,
		payerID, targetID,
	).Scan(&u.PayerID, &u.TargetID, &u.Paid, &u.Provider, &u.ProviderRef, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unlock: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}
