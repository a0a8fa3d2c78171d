// Package payment sells contact unlocks through Midtrans Snap and turns the
// provider's notifications into ledger entries.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/observ"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Ledger is satisfied by *access.Ledger.
type Ledger interface {
	RecordPayment(ctx context.Context, payerID, targetID uuid.UUID, provider, providerRef string) error
	IsUnlocked(ctx context.Context, payerID, targetID uuid.UUID) (bool, error)
}

type UserLookup interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Config struct {
	ServerKey string
	Price     int64
	ClientURL string
}

// CheckoutResult is either AlreadyPaid or a Snap transaction to complete.
type CheckoutResult struct {
	AlreadyPaid bool   `json:"already_paid"`
	OrderID     string `json:"order_id,omitempty"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// NotificationResult says what a notification did to the ledger.
type NotificationResult struct {
	Status   string `json:"status"`
	Recorded bool   `json:"recorded"`
}

type Service struct {
	cfg     Config
	snap    SnapClient
	breaker *gobreaker.CircuitBreaker
	ledger  Ledger
	users   UserLookup
	metrics *observ.Metrics
	logger  *zap.Logger
}

func NewService(cfg Config, client SnapClient, ledger Ledger, users UserLookup, metrics *observ.Metrics, logger *zap.Logger) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "midtrans-snap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Service{
		cfg:     cfg,
		snap:    client,
		breaker: breaker,
		ledger:  ledger,
		users:   users,
		metrics: metrics,
		logger:  logger,
	}
}

// Enabled is false when no server key is configured.
func (s *Service) Enabled() bool {
	return s.cfg.ServerKey != "" && s.snap != nil
}

// Checkout starts a Snap transaction for payer to unlock target. Payer and
// target travel in custom fields and come back on the notification.
func (s *Service) Checkout(ctx context.Context, payerID, targetID uuid.UUID) (*CheckoutResult, error) {
	if !s.Enabled() {
		return nil, apperrors.NewUnavailable("payments are not configured")
	}
	if targetID == uuid.Nil {
		return nil, apperrors.NewInvalidArgument("target user is required")
	}
	if payerID == targetID {
		return nil, apperrors.NewInvalidArgument("cannot unlock yourself")
	}

	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("check target user: %w", err))
	}
	if !exists {
		return nil, apperrors.NewNotFound("user", targetID.String())
	}

	paid, err := s.ledger.IsUnlocked(ctx, payerID, targetID)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("check unlock: %w", err))
	}
	if paid {
		return &CheckoutResult{AlreadyPaid: true}, nil
	}

	orderID := "unlock-" + ulid.Make().String()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: s.cfg.Price,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    "dm-unlock",
			Name:  "Private message unlock",
			Price: s.cfg.Price,
			Qty:   1,
		}},
		CustomField1: payerID.String(),
		CustomField2: targetID.String(),
	}
	if s.cfg.ClientURL != "" {
		req.Callbacks = &snap.Callbacks{
			Finish: strings.TrimRight(s.cfg.ClientURL, "/") + "/messages?payment=success",
		}
	}

	out, err := s.breaker.Execute(func() (any, error) {
		resp, midErr := s.snap.CreateTransaction(req)
		if midErr != nil {
			return nil, fmt.Errorf("create snap transaction: %s", midErr.GetMessage())
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewUnavailable("payment provider is unavailable, try again later")
		}
		s.logger.Error("snap checkout failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, apperrors.NewInternal(err)
	}
	resp := out.(*snap.Response)

	s.logger.Info("unlock checkout created",
		zap.String("order_id", orderID),
		zap.String("payer_id", payerID.String()),
		zap.String("target_id", targetID.String()),
	)
	return &CheckoutResult{OrderID: orderID, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// HandleNotification verifies a Midtrans notification and records the
// unlock when it reports a settled payment. Every other status is
// acknowledged without touching the ledger, so an unlock is never revoked
// and redelivery in any order is harmless.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*NotificationResult, error) {
	if s.cfg.ServerKey == "" {
		return nil, apperrors.NewUnavailable("payments are not configured")
	}
	if !VerifySignature(n, s.cfg.ServerKey) {
		s.metrics.PaymentNotification(statusInvalidSignature)
		s.logger.Warn("notification signature mismatch", zap.String("order_id", n.OrderID))
		return nil, apperrors.NewAccessDenied("invalid signature")
	}
	s.metrics.PaymentNotification(statusLabel(n.TransactionStatus))

	result := &NotificationResult{Status: n.TransactionStatus}
	if !n.Settled() {
		s.logger.Info("notification ignored",
			zap.String("order_id", n.OrderID),
			zap.String("status", n.TransactionStatus),
			zap.String("fraud_status", n.FraudStatus),
		)
		return result, nil
	}

	payerID, err := uuid.Parse(n.CustomField1)
	if err != nil {
		return nil, apperrors.NewInvalidArgument("notification carries no valid payer")
	}
	targetID, err := uuid.Parse(n.CustomField2)
	if err != nil {
		return nil, apperrors.NewInvalidArgument("notification carries no valid target")
	}

	if err := s.ledger.RecordPayment(ctx, payerID, targetID, Provider, n.Ref()); err != nil {
		return nil, err
	}
	result.Recorded = true
	return result, nil
}
