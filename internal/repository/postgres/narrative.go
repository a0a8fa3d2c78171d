package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/confide/internal/models"
)

type NarrativeStore struct {
	pool *pgxpool.Pool
}

func NewNarrativeStore(pool *pgxpool.Pool) *NarrativeStore {
	return &NarrativeStore{pool: pool}
}

const narrativeColumns = `id, owner_id, title, body, tags, status, shared, created_at, updated_at`

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
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}

	query := `
		INSERT INTO narratives (` + narrativeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + narrativeColumns

	row := s.pool.QueryRow(ctx, query,
		n.ID, n.OwnerID, n.Title, n.Body, n.Tags, string(n.Status), n.Shared, n.CreatedAt, n.UpdatedAt)
	out, err := scanNarrative(row)
	if err != nil {
		return nil, fmt.Errorf("insert narrative: %w", err)
	}
	return &out, nil
}

func (s *NarrativeStore) ListEligibleByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error) {
	query := `
		SELECT ` + narrativeColumns + `
		FROM narratives
		WHERE owner_id = $1 AND status = 'published' AND shared
		ORDER BY created_at DESC
		LIMIT $2`
	return s.list(ctx, query, ownerID, limit)
}

func (s *NarrativeStore) ListEligibleExcluding(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error) {
	query := `
		SELECT ` + narrativeColumns + `
		FROM narratives
		WHERE owner_id <> $1 AND status = 'published' AND shared
		ORDER BY created_at DESC
		LIMIT $2`
	return s.list(ctx, query, ownerID, limit)
}

func (s *NarrativeStore) list(ctx context.Context, query string, args ...any) ([]models.Narrative, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list narratives: %w", err)
	}
	defer rows.Close()

	narratives := make([]models.Narrative, 0)
	for rows.Next() {
		n, err := scanNarrative(rows)
		if err != nil {
			return nil, fmt.Errorf("scan narrative: %w", err)
		}
		narratives = append(narratives, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate narratives: %w", err)
	}
	return narratives, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNarrative(row scanner) (models.Narrative, error) {
	var (
		n      models.Narrative
		status string
	)
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.Tags, &status, &n.Shared, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return models.Narrative{}, err
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.Status = models.NarrativeStatus(status)
	return n, nil
}
