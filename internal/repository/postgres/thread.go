package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/confide/internal/models"
)

type ThreadStore struct {
	pool *pgxpool.Pool
}

func NewThreadStore(pool *pgxpool.Pool) *ThreadStore {
	return &ThreadStore{pool: pool}
}

// CreateOrGet relies on UNIQUE(user_a, user_b). When two callers race, the
// loser's INSERT returns no row and it reads the winner's thread.
func (s *ThreadStore) CreateOrGet(ctx context.Context, lo, hi uuid.UUID) (*models.Thread, bool, error) {
	insert := `
		INSERT INTO threads (user_a, user_b, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_a, user_b) DO NOTHING
		RETURNING id, user_a, user_b, created_at`

	var t models.Thread
	err := s.pool.QueryRow(ctx, insert, lo, hi).Scan(&t.ID, &t.UserA, &t.UserB, &t.CreatedAt)
	if err == nil {
		return &t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert thread: %w", err)
	}

	lookup := `
		SELECT id, user_a, user_b, created_at
		FROM threads
		WHERE user_a = $1 AND user_b = $2`
	if err := s.pool.QueryRow(ctx, lookup, lo, hi).Scan(&t.ID, &t.UserA, &t.UserB, &t.CreatedAt); err != nil {
		return nil, false, fmt.Errorf("get thread by pair: %w", err)
	}
	return &t, false, nil
}

func (s *ThreadStore) GetByID(ctx context.Context, threadID uuid.UUID) (*models.Thread, error) {
	query := `SELECT id, user_a, user_b, created_at FROM threads WHERE id = $1`

	var t models.Thread
	err := s.pool.QueryRow(ctx, query, threadID).Scan(&t.ID, &t.UserA, &t.UserB, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}

func (s *ThreadStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ThreadSummary, error) {
	query := `
		SELECT t.id, t.user_a, t.user_b, t.created_at, m.body, m.created_at
		FROM threads t
		LEFT JOIN LATERAL (
			SELECT body, created_at FROM thread_messages
			WHERE thread_id = t.id
			ORDER BY id DESC
			LIMIT 1
		) m ON true
		WHERE t.user_a = $1 OR t.user_b = $1`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ThreadSummary, 0)
	for rows.Next() {
		var (
			t      models.Thread
			last   *string
			lastAt *time.Time
		)
		if err := rows.Scan(&t.ID, &t.UserA, &t.UserB, &t.CreatedAt, &last, &lastAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		ts := models.ThreadSummary{
			ID:           t.ID,
			OtherUserID:  t.Other(userID),
			LastActivity: t.CreatedAt,
		}
		if last != nil {
			ts.LastMessage = *last
		}
		if lastAt != nil {
			ts.LastActivity = *lastAt
		}
		summaries = append(summaries, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return summaries, nil
}
