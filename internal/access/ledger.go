package access

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/events"
	"github.com/lalith-99/confide/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Ledger records paid unlocks. An unlock is directional: payer may contact
// target, not the other way round.
type Ledger struct {
	unlocks repository.UnlockRepository
	emitter *events.Emitter
	logger  *zap.Logger
}

func NewLedger(unlocks repository.UnlockRepository, emitter *events.Emitter, logger *zap.Logger) *Ledger {
	return &Ledger{unlocks: unlocks, emitter: emitter, logger: logger}
}

// RecordPayment marks (payer, target) as paid. Repeated or out-of-order
// notifications for the same pair collapse onto one row; paid never reverts.
func (l *Ledger) RecordPayment(ctx context.Context, payerID, targetID uuid.UUID, provider, providerRef string) error {
	ctx, span := tracer.Start(ctx, "access.RecordPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.provider", provider))

	if payerID == uuid.Nil || targetID == uuid.Nil {
		return apperrors.NewInvalidArgument("payer and target are required")
	}
	if payerID == targetID {
		return apperrors.NewInvalidArgument("payer and target must differ")
	}

	if err := l.unlocks.UpsertPaid(ctx, payerID, targetID, provider, providerRef); err != nil {
		spanError(span, err)
		return apperrors.NewInternal(err)
	}

	l.logger.Info("unlock recorded",
		zap.String("payer_id", payerID.String()),
		zap.String("target_id", targetID.String()),
		zap.String("provider", provider),
		zap.String("provider_ref", providerRef),
	)
	l.emitter.Emit(ctx, events.UnlockRecorded(payerID, targetID, provider, providerRef))
	return nil
}

// IsUnlocked reports whether payer has paid to contact target.
func (l *Ledger) IsUnlocked(ctx context.Context, payerID, targetID uuid.UUID) (bool, error) {
	u, err := l.unlocks.Get(ctx, payerID, targetID)
	if err != nil {
		return false, err
	}
	return u != nil && u.Paid, nil
}
