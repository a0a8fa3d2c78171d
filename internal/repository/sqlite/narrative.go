package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/models"
)

type NarrativeStore struct {
	db *sql.DB
}

func NewNarrativeStore(db *sql.DB) *NarrativeStore {
	return &NarrativeStore{db: db}
}

func (s *NarrativeStore) Create(ctx context.Context, n models.Narrative) (*models.Narrative, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.NarrativeDraft
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.CreatedAt = n.CreatedAt.Truncate(time.Millisecond)
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}

	tags, err := encodeTags(n.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO narratives (id, owner_id, title, body, tags_json, status, shared, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, n.Title, n.Body, tags, string(n.Status), n.Shared,
		toMillis(n.CreatedAt), toMillis(n.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert narrative: %w", err)
	}
	return &n, nil
}

func (s *NarrativeStore) ListEligibleByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error) {
	return s.list(ctx, `
		SELECT id, owner_id, title, body, tags_json, status, shared, created_at, updated_at
		FROM narratives
		WHERE owner_id = ? AND status = 'published' AND shared = 1
		ORDER BY created_at DESC
		LIMIT ?`, ownerID, limit)
}

func (s *NarrativeStore) ListEligibleExcluding(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error) {
	return s.list(ctx, `
		SELECT id, owner_id, title, body, tags_json, status, shared, created_at, updated_at
		FROM narratives
		WHERE owner_id <> ? AND status = 'published' AND shared = 1
		ORDER BY created_at DESC
		LIMIT ?`, ownerID, limit)
}

func (s *NarrativeStore) list(ctx context.Context, query string, args ...any) ([]models.Narrative, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list narratives: %w", err)
	}
	defer rows.Close()

	narratives := make([]models.Narrative, 0)
	for rows.Next() {
		var (
			n                models.Narrative
			tags, status     string
			created, updated int64
		)
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &tags, &status, &n.Shared, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan narrative: %w", err)
		}
		n.Tags = decodeTags(tags)
		n.Status = models.NarrativeStatus(status)
		n.CreatedAt = fromMillis(created)
		n.UpdatedAt = fromMillis(updated)
		narratives = append(narratives, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate narratives: %w", err)
	}
	return narratives, nil
}
