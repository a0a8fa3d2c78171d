package match

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/models"
	"github.com/lalith-99/confide/internal/observ"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Pool bounds.
const (
	OwnSignalLimit     = 3
	CandidatePoolLimit = 300
)

// NarrativeSource is the read side the matcher needs.
type NarrativeSource interface {
	ListEligibleByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error)
	ListEligibleExcluding(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error)
}

type Matcher struct {
	narratives NarrativeSource
	metrics    *observ.Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
	limit      int
}

func NewMatcher(narratives NarrativeSource, metrics *observ.Metrics, logger *zap.Logger) *Matcher {
	return &Matcher{
		narratives: narratives,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("confide/match"),
		limit:      DefaultLimit,
	}
}

// GetMatches ranks other users against the caller's recent published+shared
// narratives. A caller with none gets an empty list without any scoring.
func (m *Matcher) GetMatches(ctx context.Context, callerID uuid.UUID) ([]Profile, error) {
	ctx, span := m.tracer.Start(ctx, "match.GetMatches")
	defer span.End()
	m.metrics.MatchQuery()

	own, err := m.narratives.ListEligibleByOwner(ctx, callerID, OwnSignalLimit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.NewInternal(fmt.Errorf("load caller narratives: %w", err))
	}
	if len(own) == 0 {
		return []Profile{}, nil
	}

	pool, err := m.narratives.ListEligibleExcluding(ctx, callerID, CandidatePoolLimit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.NewInternal(fmt.Errorf("load candidate pool: %w", err))
	}

	profiles := Rank(Aggregate(PoolSignal(own), pool), m.limit)

	span.SetAttributes(
		attribute.Int("match.own", len(own)),
		attribute.Int("match.pool", len(pool)),
		attribute.Int("match.results", len(profiles)),
	)
	m.logger.Debug("matches computed",
		zap.String("caller_id", callerID.String()),
		zap.Int("pool", len(pool)),
		zap.Int("results", len(profiles)),
	)
	return profiles, nil
}
