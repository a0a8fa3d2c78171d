package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/confide/internal/models"
)

type UnlockStore struct {
	pool *pgxpool.Pool
}

func NewUnlockStore(pool *pgxpool.Pool) *UnlockStore {
	return &UnlockStore{pool: pool}
}

// UpsertPaid is the only writer of the ledger. Providers redeliver
// notifications, so the same pair may arrive many times.
func (s *UnlockStore) UpsertPaid(ctx context.Context, payerID, targetID uuid.UUID, provider, providerRef string) error {
	query := `
		INSERT INTO unlocks (payer_id, target_id, paid, provider, provider_ref, created_at, updated_at)
		VALUES ($1, $2, true, $3, $4, now(), now())
		ON CONFLICT (payer_id, target_id) DO UPDATE SET
			paid = true,
			provider = EXCLUDED.provider,
			provider_ref = EXCLUDED.provider_ref,
			updated_at = now()`

	if _, err := s.pool.Exec(ctx, query, payerID, targetID, provider, providerRef); err != nil {
		return fmt.Errorf("upsert unlock: %w", err)
	}
	return nil
}

func (s *UnlockStore) Get(ctx context.Context, payerID, targetID uuid.UUID) (*models.Unlock, error) {
	query := `
		SELECT payer_id, target_id, paid, provider, provider_ref, created_at, updated_at
		FROM unlocks
		WHERE payer_id = $1 AND target_id = $2`

	var u models.Unlock
	err := s.pool.QueryRow(ctx, query, payerID, targetID).Scan(
		&u.PayerID, &u.TargetID, &u.Paid, &u.Provider, &u.ProviderRef, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unlock: %w", err)
	}
	return &u, nil
}
