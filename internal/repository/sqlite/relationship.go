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

type RelationshipStore struct {
	db *sql.DB
}

func NewRelationshipStore(db *sql.DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

// InsertPending is one statement and SQLite runs writers one at a time, so
// two crossing proposals cannot both land: the NOT EXISTS guard sees the
// reverse edge and the primary key absorbs a duplicate of the same direction.
func (s *RelationshipStore) InsertPending(ctx context.Context, subjectID, otherID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (subject_id, other_id, status, created_at)
		SELECT ?, ?, 'pending', ?
		WHERE NOT EXISTS (
			SELECT 1 FROM relationships WHERE subject_id = ? AND other_id = ?
		)
		ON CONFLICT (subject_id, other_id) DO NOTHING`,
		subjectID, otherID, toMillis(time.Now()), otherID, subjectID)
	if err != nil {
		return false, fmt.Errorf("insert pending relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert pending relationship: %w", err)
	}
	return n > 0, nil
}

// AcceptPending leaves the edge pending when the reverse edge is blocked.
func (s *RelationshipStore) AcceptPending(ctx context.Context, fromID, toID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE relationships SET status = 'accepted'
		WHERE subject_id = ? AND other_id = ? AND status = 'pending'
		AND NOT EXISTS (
			SELECT 1 FROM relationships r
			WHERE r.subject_id = ? AND r.other_id = ? AND r.status = 'blocked'
		)`,
		fromID, toID, toID, fromID)
	if err != nil {
		return false, fmt.Errorf("accept relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept relationship: %w", err)
	}
	return n > 0, nil
}

func (s *RelationshipStore) UpsertAccepted(ctx context.Context, subjectID, otherID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (subject_id, other_id, status, created_at)
		VALUES (?, ?, 'accepted', ?)
		ON CONFLICT (subject_id, other_id) DO UPDATE SET status = 'accepted'
		WHERE relationships.status = 'pending'`,
		subjectID, otherID, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert accepted relationship: %w", err)
	}
	return nil
}

func (s *RelationshipStore) Get(ctx context.Context, subjectID, otherID uuid.UUID) (*models.Relationship, error) {
	var (
		r       models.Relationship
		status  string
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT subject_id, other_id, status, created_at
		FROM relationships WHERE subject_id = ? AND other_id = ?`,
		subjectID, otherID,
	).Scan(&r.SubjectID, &r.OtherID, &status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	r.Status = models.RelationshipStatus(status)
	r.CreatedAt = fromMillis(created)
	return &r, nil
}

func (s *RelationshipStore) HasAccepted(ctx context.Context, subjectID, otherID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM relationships
			WHERE subject_id = ? AND other_id = ? AND status = 'accepted'
		)`, subjectID, otherID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check accepted relationship: %w", err)
	}
	return ok, nil
}
