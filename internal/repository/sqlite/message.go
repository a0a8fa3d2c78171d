package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/models"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, threadID, senderID uuid.UUID, body string) (*models.ThreadMessage, error) {
	var (
		msg     models.ThreadMessage
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO thread_messages (thread_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, thread_id, sender_id, body, created_at`,
		threadID, senderID, body, toMillis(time.Now()),
	).Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.Body, &created)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	msg.CreatedAt = fromMillis(created)
	return &msg, nil
}

func (s *MessageStore) ListByThread(ctx context.Context, threadID uuid.UUID, before int64, limit int) ([]models.ThreadMessage, error) {
	query := `
		SELECT id, thread_id, sender_id, body, created_at
		FROM thread_messages
		WHERE thread_id = ?
		ORDER BY id DESC
		LIMIT ?`
	args := []any{threadID, limit}
	if before > 0 {
		query = `
			SELECT id, thread_id, sender_id, body, created_at
			FROM thread_messages
			WHERE thread_id = ? AND id < ?
			ORDER BY id DESC
			LIMIT ?`
		args = []any{threadID, before, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.ThreadMessage, 0)
	for rows.Next() {
		var (
			msg     models.ThreadMessage
			created int64
		)
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.Body, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = fromMillis(created)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Fetched newest first for the cursor; returned oldest first.
	slices.Reverse(messages)
	return messages, nil
}
