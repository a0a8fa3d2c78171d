package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/events"
	"github.com/lalith-99/confide/internal/models"
	"github.com/lalith-99/confide/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Relationships is the friendship state machine over directed edges.
//
//	none --Propose(a,b)--> a->b pending
//	a->b pending --Accept(b,a)--> a->b accepted, b->a accepted
//
// blocked is terminal and never written over.
type Relationships struct {
	users   repository.UserRepository
	edges   repository.RelationshipRepository
	emitter *events.Emitter
	logger  *zap.Logger
}

func NewRelationships(users repository.UserRepository, edges repository.RelationshipRepository, emitter *events.Emitter, logger *zap.Logger) *Relationships {
	return &Relationships{users: users, edges: edges, emitter: emitter, logger: logger}
}

// Propose records a pending request subject->other. It is a no-op when an
// edge already exists in either direction.
func (r *Relationships) Propose(ctx context.Context, subjectID, otherID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "access.Propose")
	defer span.End()

	if otherID == uuid.Nil {
		return apperrors.NewInvalidArgument("target user is required")
	}
	if subjectID == otherID {
		return apperrors.NewInvalidArgument("cannot send a friend request to yourself")
	}

	exists, err := r.users.Exists(ctx, otherID)
	if err != nil {
		spanError(span, err)
		return apperrors.NewInternal(fmt.Errorf("check target user: %w", err))
	}
	if !exists {
		return apperrors.NewNotFound("user", otherID.String())
	}

	inserted, err := r.edges.InsertPending(ctx, subjectID, otherID)
	if err != nil {
		spanError(span, err)
		return apperrors.NewInternal(err)
	}
	span.SetAttributes(attribute.Bool("relationship.inserted", inserted))

	if inserted {
		r.logger.Info("friend request sent",
			zap.String("subject_id", subjectID.String()),
			zap.String("other_id", otherID.String()),
		)
		r.emitter.Emit(ctx, events.FriendProposed(subjectID, otherID))
	}
	return nil
}

// Accept is called by the recipient (subjectID) of otherID's request. It
// flips other->subject to accepted and writes subject->other as accepted.
// Accepting an already accepted request re-asserts the reverse edge.
func (r *Relationships) Accept(ctx context.Context, subjectID, otherID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "access.Accept")
	defer span.End()

	if otherID == uuid.Nil {
		return apperrors.NewInvalidArgument("target user is required")
	}
	if subjectID == otherID {
		return apperrors.NewInvalidArgument("cannot accept a request from yourself")
	}

	changed, err := r.edges.AcceptPending(ctx, otherID, subjectID)
	if err != nil {
		spanError(span, err)
		return apperrors.NewInternal(err)
	}

	if !changed {
		edge, err := r.edges.Get(ctx, otherID, subjectID)
		if err != nil {
			spanError(span, err)
			return apperrors.NewInternal(err)
		}
		if edge == nil || edge.Status != models.RelationshipAccepted {
			return apperrors.NewNotFound("friend request", otherID.String())
		}
		// Re-accepting never turns a block back into a friendship.
		reverse, err := r.edges.Get(ctx, subjectID, otherID)
		if err != nil {
			spanError(span, err)
			return apperrors.NewInternal(err)
		}
		if reverse != nil && reverse.Status == models.RelationshipBlocked {
			return apperrors.NewNotFound("friend request", otherID.String())
		}
	}

	if err := r.edges.UpsertAccepted(ctx, subjectID, otherID); err != nil {
		spanError(span, err)
		return apperrors.NewInternal(err)
	}

	if changed {
		r.logger.Info("friend request accepted",
			zap.String("subject_id", subjectID.String()),
			zap.String("other_id", otherID.String()),
		)
		r.emitter.Emit(ctx, events.FriendAccepted(subjectID, otherID))
	}
	return nil
}

// IsAccepted reports an accepted edge in either direction. This is the only
// place the two directed rows are combined.
func (r *Relationships) IsAccepted(ctx context.Context, a, b uuid.UUID) (bool, error) {
	ok, err := r.edges.HasAccepted(ctx, a, b)
	if err != nil || ok {
		return ok, err
	}
	return r.edges.HasAccepted(ctx, b, a)
}
