package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/confide/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Create(ctx context.Context, threadID, senderID uuid.UUID, body string) (*models.ThreadMessage, error) {
	// bigserial id; RETURNING hands it back.
	query := `
		INSERT INTO thread_messages (thread_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, thread_id, sender_id, body, created_at`

	var msg models.ThreadMessage
	err := s.pool.QueryRow(ctx, query, threadID, senderID, body).Scan(
		&msg.ID,
		&msg.ThreadID,
		&msg.SenderID,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListByThread pages backwards by id. before=0 is the latest page,
// before=42 is everything older than message 42.
func (s *MessageStore) ListByThread(ctx context.Context, threadID uuid.UUID, before int64, limit int) ([]models.ThreadMessage, error) {
	var (
		query string
		args  []any
	)
	if before > 0 {
		query = `
			SELECT id, thread_id, sender_id, body, created_at
			FROM thread_messages
			WHERE thread_id = $1 AND id < $2
			ORDER BY id DESC
			LIMIT $3`
		args = []any{threadID, before, limit}
	} else {
		query = `
			SELECT id, thread_id, sender_id, body, created_at
			FROM thread_messages
			WHERE thread_id = $1
			ORDER BY id DESC
			LIMIT $2`
		args = []any{threadID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.ThreadMessage, 0)
	for rows.Next() {
		var msg models.ThreadMessage
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}
