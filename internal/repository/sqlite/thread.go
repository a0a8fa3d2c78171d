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

type ThreadStore struct {
	db *sql.DB
}

func NewThreadStore(db *sql.DB) *ThreadStore {
	return &ThreadStore{db: db}
}

// CreateOrGet leans on UNIQUE(user_a, user_b): the losing writer of a race
// gets no row back from RETURNING and reads the winner's thread instead.
func (s *ThreadStore) CreateOrGet(ctx context.Context, lo, hi uuid.UUID) (*models.Thread, bool, error) {
	var (
		t       models.Thread
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO threads (id, user_a, user_b, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_a, user_b) DO NOTHING
		RETURNING id, user_a, user_b, created_at`,
		uuid.New(), lo, hi, toMillis(time.Now()),
	).Scan(&t.ID, &t.UserA, &t.UserB, &created)
	if err == nil {
		t.CreatedAt = fromMillis(created)
		return &t, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert thread: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT id, user_a, user_b, created_at
		FROM threads WHERE user_a = ? AND user_b = ?`,
		lo, hi,
	).Scan(&t.ID, &t.UserA, &t.UserB, &created)
	if err != nil {
		return nil, false, fmt.Errorf("get thread by pair: %w", err)
	}
	t.CreatedAt = fromMillis(created)
	return &t, false, nil
}

func (s *ThreadStore) GetByID(ctx context.Context, threadID uuid.UUID) (*models.Thread, error) {
	var (
		t       models.Thread
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_a, user_b, created_at FROM threads WHERE id = ?`, threadID,
	).Scan(&t.ID, &t.UserA, &t.UserB, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

func (s *ThreadStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_a, t.user_b, t.created_at,
			COALESCE((SELECT m.body FROM thread_messages m
				WHERE m.thread_id = t.id ORDER BY m.id DESC LIMIT 1), ''),
			(SELECT m.created_at FROM thread_messages m
				WHERE m.thread_id = t.id ORDER BY m.id DESC LIMIT 1)
		FROM threads t
		WHERE t.user_a = ? OR t.user_b = ?`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ThreadSummary, 0)
	for rows.Next() {
		var (
			t       models.Thread
			created int64
			last    string
			lastAt  sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.UserA, &t.UserB, &created, &last, &lastAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		activity := fromMillis(created)
		if lastAt.Valid {
			activity = fromMillis(lastAt.Int64)
		}
		summaries = append(summaries, models.ThreadSummary{
			ID:           t.ID,
			OtherUserID:  t.Other(userID),
			LastMessage:  last,
			LastActivity: activity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return summaries, nil
}
