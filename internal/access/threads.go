package access

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/events"
	"github.com/lalith-99/confide/internal/models"
	"github.com/lalith-99/confide/internal/observ"
	"github.com/lalith-99/confide/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Message page bounds.
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 500
)

// ContactChecker is satisfied by *Gate.
type ContactChecker interface {
	CanContact(ctx context.Context, callerID, targetID uuid.UUID) (bool, error)
}

// Broadcaster pushes a stored message to live subscribers of its thread.
type Broadcaster interface {
	BroadcastMessage(ctx context.Context, msg models.ThreadMessage) error
}

// Threads owns thread identity and the messages inside a thread.
type Threads struct {
	gate        ContactChecker
	threads     repository.ThreadRepository
	messages    repository.MessageRepository
	broadcaster Broadcaster
	emitter     *events.Emitter
	metrics     *observ.Metrics
	logger      *zap.Logger
}

func NewThreads(
	gate ContactChecker,
	threads repository.ThreadRepository,
	messages repository.MessageRepository,
	broadcaster Broadcaster,
	emitter *events.Emitter,
	metrics *observ.Metrics,
	logger *zap.Logger,
) *Threads {
	return &Threads{
		gate:        gate,
		threads:     threads,
		messages:    messages,
		broadcaster: broadcaster,
		emitter:     emitter,
		metrics:     metrics,
		logger:      logger,
	}
}

// Resolve returns the one thread for the unordered pair {a, b}, creating it
// on first use. Resolve(a, b) and Resolve(b, a) always agree, even when
// they race. created is true only for the call that inserted the row.
func (s *Threads) Resolve(ctx context.Context, a, b uuid.UUID) (*models.Thread, bool, error) {
	if a == b {
		return nil, false, apperrors.NewInvalidArgument("a thread needs two distinct users")
	}
	lo, hi := models.CanonicalPair(a, b)
	thread, created, err := s.threads.CreateOrGet(ctx, lo, hi)
	if err != nil {
		return nil, false, apperrors.NewInternal(err)
	}
	return thread, created, nil
}

// Open checks the gate once and resolves the caller's thread with target.
func (s *Threads) Open(ctx context.Context, callerID, targetID uuid.UUID) (*models.Thread, error) {
	ctx, span := tracer.Start(ctx, "access.OpenThread")
	defer span.End()

	if targetID == uuid.Nil {
		return nil, apperrors.NewInvalidArgument("target user is required")
	}
	if callerID == targetID {
		return nil, apperrors.NewInvalidArgument("cannot open a thread with yourself")
	}

	allowed, err := s.gate.CanContact(ctx, callerID, targetID)
	if err != nil {
		spanError(span, err)
		return nil, err
	}
	if !allowed {
		return nil, apperrors.NewAccessDenied("payment or friendship required")
	}

	thread, created, err := s.Resolve(ctx, callerID, targetID)
	if err != nil {
		spanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("thread.created", created))
	s.metrics.ThreadOpened(created)

	if created {
		s.logger.Info("thread created",
			zap.String("thread_id", thread.ID.String()),
			zap.String("user_a", thread.UserA.String()),
			zap.String("user_b", thread.UserB.String()),
		)
	}
	s.emitter.Emit(ctx, events.ThreadOpened(thread.ID, callerID, targetID, created))
	return thread, nil
}

// List returns the caller's threads, most recent activity first.
func (s *Threads) List(ctx context.Context, callerID uuid.UUID) ([]models.ThreadSummary, error) {
	summaries, err := s.threads.ListByUser(ctx, callerID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	slices.SortStableFunc(summaries, func(a, b models.ThreadSummary) int {
		return cmp.Compare(b.LastActivity.UnixNano(), a.LastActivity.UnixNano())
	})
	return summaries, nil
}

// ListMessages pages backwards from before (0 = latest). limit is clamped
// to [1, MaxMessageLimit], defaulting to DefaultMessageLimit.
func (s *Threads) ListMessages(ctx context.Context, callerID, threadID uuid.UUID, before int64, limit int) ([]models.ThreadMessage, error) {
	if _, err := s.Member(ctx, callerID, threadID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	limit = min(limit, MaxMessageLimit)

	msgs, err := s.messages.ListByThread(ctx, threadID, before, limit)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return msgs, nil
}

// SendMessage stores a message from a participant and pushes it to live
// subscribers. A failed push does not fail the send.
func (s *Threads) SendMessage(ctx context.Context, callerID, threadID uuid.UUID, body string) (*models.ThreadMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewInvalidArgument("message body is required")
	}
	if _, err := s.Member(ctx, callerID, threadID); err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, threadID, callerID, body)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastMessage(ctx, *msg); err != nil {
			s.logger.Warn("broadcast message failed",
				zap.String("thread_id", threadID.String()),
				zap.Int64("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return msg, nil
}

// Member returns the thread when callerID participates in it: NotFound for
// an unknown thread, AccessDenied for a non-participant.
func (s *Threads) Member(ctx context.Context, callerID, threadID uuid.UUID) (*models.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if thread == nil {
		return nil, apperrors.NewNotFound("thread", threadID.String())
	}
	if !thread.Has(callerID) {
		return nil, apperrors.NewAccessDenied("not a participant of this thread")
	}
	return thread, nil
}
