package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/observ"
	"go.opentelemetry.io/otel/attribute"
)

type FriendshipChecker interface {
	IsAccepted(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type UnlockChecker interface {
	IsUnlocked(ctx context.Context, payerID, targetID uuid.UUID) (bool, error)
}

// Gate is the single authorization check for private contact.
type Gate struct {
	friends FriendshipChecker
	unlocks UnlockChecker
	metrics *observ.Metrics
}

func NewGate(friends FriendshipChecker, unlocks UnlockChecker, metrics *observ.Metrics) *Gate {
	return &Gate{friends: friends, unlocks: unlocks, metrics: metrics}
}

// CanContact reports whether caller may message target: an accepted
// friendship either way, or an unlock paid by caller for target.
// Contacting yourself is never allowed.
func (g *Gate) CanContact(ctx context.Context, callerID, targetID uuid.UUID) (bool, error) {
	ctx, span := tracer.Start(ctx, "access.CanContact")
	defer span.End()

	allowed, err := g.decide(ctx, callerID, targetID)
	if err != nil {
		spanError(span, err)
		return false, apperrors.NewInternal(err)
	}
	span.SetAttributes(attribute.Bool("access.allowed", allowed))
	g.metrics.GateDecision(allowed)
	return allowed, nil
}

func (g *Gate) decide(ctx context.Context, callerID, targetID uuid.UUID) (bool, error) {
	if callerID == targetID {
		return false, nil
	}

	friends, err := g.friends.IsAccepted(ctx, callerID, targetID)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return true, nil
	}

	paid, err := g.unlocks.IsUnlocked(ctx, callerID, targetID)
	if err != nil {
		return false, fmt.Errorf("check unlock: %w", err)
	}
	return paid, nil
}
