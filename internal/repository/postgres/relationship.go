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

type RelationshipStore struct {
	pool *pgxpool.Pool
}

func NewRelationshipStore(pool *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{pool: pool}
}

// InsertPending writes subject->other unless an edge exists either way.
// Under READ COMMITTED two crossing proposals could both pass NOT EXISTS,
// so the pair is serialized with a transaction-scoped advisory lock first.
func (s *RelationshipStore) InsertPending(ctx context.Context, subjectID, otherID uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin insert pending: %w", err)
	}
	defer tx.Rollback(ctx)

	lo, hi := models.CanonicalPair(subjectID, otherID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lo.String()+hi.String()); err != nil {
		return false, fmt.Errorf("lock relationship pair: %w", err)
	}

	query := `
		INSERT INTO relationships (subject_id, other_id, status, created_at)
		SELECT $1::uuid, $2::uuid, 'pending', now()
		WHERE NOT EXISTS (
			SELECT 1 FROM relationships WHERE subject_id = $2::uuid AND other_id = $1::uuid
		)
		ON CONFLICT (subject_id, other_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, subjectID, otherID)
	if err != nil {
		return false, fmt.Errorf("insert pending relationship: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit insert pending: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AcceptPending is a conditional update, so two concurrent accepts resolve
// to one transition and one no-op. A blocked reverse edge keeps it pending.
func (s *RelationshipStore) AcceptPending(ctx context.Context, fromID, toID uuid.UUID) (bool, error) {
	query := `
		UPDATE relationships SET status = 'accepted'
		WHERE subject_id = $1 AND other_id = $2 AND status = 'pending'
		AND NOT EXISTS (
			SELECT 1 FROM relationships r
			WHERE r.subject_id = $2 AND r.other_id = $1 AND r.status = 'blocked'
		)`

	tag, err := s.pool.Exec(ctx, query, fromID, toID)
	if err != nil {
		return false, fmt.Errorf("accept relationship: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *RelationshipStore) UpsertAccepted(ctx context.Context, subjectID, otherID uuid.UUID) error {
	query := `
		INSERT INTO relationships (subject_id, other_id, status, created_at)
		VALUES ($1, $2, 'accepted', now())
		ON CONFLICT (subject_id, other_id) DO UPDATE SET status = 'accepted'
		WHERE relationships.status = 'pending'`

	if _, err := s.pool.Exec(ctx, query, subjectID, otherID); err != nil {
		return fmt.Errorf("upsert accepted relationship: %w", err)
	}
	return nil
}

func (s *RelationshipStore) Get(ctx context.Context, subjectID, otherID uuid.UUID) (*models.Relationship, error) {
	query := `
		SELECT subject_id, other_id, status, created_at
		FROM relationships
		WHERE subject_id = $1 AND other_id = $2`

	var (
		r      models.Relationship
		status string
	)
	err := s.pool.QueryRow(ctx, query, subjectID, otherID).Scan(&r.SubjectID, &r.OtherID, &status, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	r.Status = models.RelationshipStatus(status)
	return &r, nil
}

func (s *RelationshipStore) HasAccepted(ctx context.Context, subjectID, otherID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM relationships
			WHERE subject_id = $1 AND other_id = $2 AND status = 'accepted'
		)`

	var ok bool
	if err := s.pool.QueryRow(ctx, query, subjectID, otherID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check accepted relationship: %w", err)
	}
	return ok, nil
}
