package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/observ"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const serverKey = "SB-Mid-server-test"

type fakeSnap struct {
	requests []*snap.Request
	err      *midtrans.Error
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &snap.Response{Token: "tok-123", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-123"}, nil
}

type payment struct {
	payer, target uuid.UUID
	provider, ref string
}

type fakeLedger struct {
	paid     map[[2]uuid.UUID]bool
	recorded []payment
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{paid: map[[2]uuid.UUID]bool{}}
}

func (l *fakeLedger) RecordPayment(_ context.Context, payer, target uuid.UUID, provider, ref string) error {
	l.paid[[2]uuid.UUID{payer, target}] = true
	l.recorded = append(l.recorded, payment{payer, target, provider, ref})
	return nil
}

func (l *fakeLedger) IsUnlocked(_ context.Context, payer, target uuid.UUID) (bool, error) {
	return l.paid[[2]uuid.UUID{payer, target}], nil
}

type knownUsers map[uuid.UUID]bool

func (k knownUsers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return k[id], nil
}

func signed(n Notification) Notification {
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return n
}

func TestSignature(t *testing.T) {
	n := signed(Notification{OrderID: "unlock-1", StatusCode: "200", GrossAmount: "49000.00"})
	assert.True(t, VerifySignature(n, serverKey))
	assert.Len(t, n.SignatureKey, 128)

	n.GrossAmount = "1.00"
	assert.False(t, VerifySignature(n, serverKey), "tampered amount")
	assert.False(t, VerifySignature(signed(Notification{OrderID: "x"}), ""), "no key configured")
}

func TestSettled(t *testing.T) {
	tests := []struct {
		status, fraud string
		want          bool
	}{
		{"settlement", "", true},
		{"capture", "accept", true},
		{"capture", "", true},
		{"capture", "challenge", false},
		{"pending", "", false},
		{"expire", "", false},
		{"deny", "", false},
		{"refund", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.fraud, func(t *testing.T) {
			n := Notification{TransactionStatus: tt.status, FraudStatus: tt.fraud}
			assert.Equal(t, tt.want, n.Settled())
		})
	}
}

func TestCheckout(t *testing.T) {
	payer, target := uuid.New(), uuid.New()
	client := &fakeSnap{}
	ledger := newFakeLedger()
	svc := NewService(Config{ServerKey: serverKey, Price: 49000, ClientURL: "https://confide.test/"},
		client, ledger, knownUsers{target: true}, nil, zap.NewNop())

	res, err := svc.Checkout(context.Background(), payer, target)
	require.NoError(t, err)
	assert.False(t, res.AlreadyPaid)
	assert.Equal(t, "tok-123", res.Token)
	assert.Contains(t, res.OrderID, "unlock-")

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, int64(49000), req.TransactionDetails.GrossAmt)
	assert.Equal(t, payer.String(), req.CustomField1)
	assert.Equal(t, target.String(), req.CustomField2)
	assert.Equal(t, "https://confide.test/messages?payment=success", req.Callbacks.Finish)
}

func TestCheckout_AlreadyPaid(t *testing.T) {
	payer, target := uuid.New(), uuid.New()
	client := &fakeSnap{}
	ledger := newFakeLedger()
	require.NoError(t, ledger.RecordPayment(context.Background(), payer, target, Provider, "r"))
	svc := NewService(Config{ServerKey: serverKey, Price: 1}, client, ledger, knownUsers{target: true}, nil, zap.NewNop())

	res, err := svc.Checkout(context.Background(), payer, target)
	require.NoError(t, err)
	assert.True(t, res.AlreadyPaid)
	assert.Empty(t, client.requests)
}

func TestCheckout_Errors(t *testing.T) {
	payer, target := uuid.New(), uuid.New()
	users := knownUsers{target: true}

	disabled := NewService(Config{}, nil, newFakeLedger(), users, nil, zap.NewNop())
	_, err := disabled.Checkout(context.Background(), payer, target)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))

	svc := NewService(Config{ServerKey: serverKey, Price: 1}, &fakeSnap{}, newFakeLedger(), users, nil, zap.NewNop())

	_, err = svc.Checkout(context.Background(), payer, payer)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))

	_, err = svc.Checkout(context.Background(), payer, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestCheckout_BreakerOpens(t *testing.T) {
	payer, target := uuid.New(), uuid.New()
	client := &fakeSnap{err: &midtrans.Error{Message: "boom", StatusCode: 500}}
	svc := NewService(Config{ServerKey: serverKey, Price: 1}, client, newFakeLedger(), knownUsers{target: true}, nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := svc.Checkout(context.Background(), payer, target)
		assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
	}

	_, err := svc.Checkout(context.Background(), payer, target)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))
	assert.Len(t, client.requests, 5, "open breaker short-circuits the provider")
}

func TestHandleNotification(t *testing.T) {
	payer, target := uuid.New(), uuid.New()
	ledger := newFakeLedger()
	svc := NewService(Config{ServerKey: serverKey}, &fakeSnap{}, ledger, knownUsers{}, nil, zap.NewNop())
	ctx := context.Background()

	settled := signed(Notification{
		TransactionID:     "tx-1",
		TransactionStatus: "settlement",
		OrderID:           "unlock-1",
		StatusCode:        "200",
		GrossAmount:       "49000.00",
		CustomField1:      payer.String(),
		CustomField2:      target.String(),
	})

	res, err := svc.HandleNotification(ctx, settled)
	require.NoError(t, err)
	assert.True(t, res.Recorded)

	// Redelivery is harmless.
	res, err = svc.HandleNotification(ctx, settled)
	require.NoError(t, err)
	assert.True(t, res.Recorded)

	require.Len(t, ledger.recorded, 2)
	assert.Equal(t, payment{payer, target, Provider, "tx-1"}, ledger.recorded[0])

	// A late "expire" for the same order never revokes.
	expired := settled
	expired.TransactionStatus = "expire"
	expired.StatusCode = "407"
	res, err = svc.HandleNotification(ctx, signed(expired))
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	assert.Len(t, ledger.recorded, 2)

	paid, err := ledger.IsUnlocked(ctx, payer, target)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestHandleNotification_Rejects(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(Config{ServerKey: serverKey}, &fakeSnap{}, ledger, knownUsers{}, nil, zap.NewNop())
	ctx := context.Background()

	forged := Notification{TransactionStatus: "settlement", OrderID: "o", StatusCode: "200", GrossAmount: "1", SignatureKey: "deadbeef"}
	_, err := svc.HandleNotification(ctx, forged)
	assert.True(t, apperrors.Is(err, apperrors.ErrAccessDenied))

	noPayer := signed(Notification{TransactionStatus: "settlement", OrderID: "o", StatusCode: "200", GrossAmount: "1"})
	_, err = svc.HandleNotification(ctx, noPayer)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))

	assert.Empty(t, ledger.recorded)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Status)
}

func TestHandleNotification_MetricLabelsBounded(t *testing.T) {
	metrics := observ.NewMetrics("test")
	svc := NewService(Config{ServerKey: serverKey}, &fakeSnap{}, newFakeLedger(), knownUsers{}, metrics, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		n := Notification{TransactionStatus: fmt.Sprintf("made-up-%d", i), OrderID: "o", StatusCode: "200", GrossAmount: "1", SignatureKey: "bad"}
		_, err := svc.HandleNotification(ctx, n)
		assert.True(t, apperrors.Is(err, apperrors.ErrAccessDenied))
	}

	// Signed but unknown statuses share one series.
	for i := 0; i < 50; i++ {
		n := signed(Notification{TransactionStatus: fmt.Sprintf("odd-%d", i), OrderID: "o", StatusCode: "200", GrossAmount: "1"})
		_, err := svc.HandleNotification(ctx, n)
		require.NoError(t, err)
	}
	_, err := svc.HandleNotification(ctx, signed(Notification{TransactionStatus: "pending", OrderID: "o", StatusCode: "201", GrossAmount: "1"}))
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(metrics.Registry(), "test_payment_notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "invalid_signature, other and pending")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "settlement", statusLabel("settlement"))
	assert.Equal(t, "capture", statusLabel("capture"))
	assert.Equal(t, "other", statusLabel("chargeback"))
	assert.Equal(t, "other", statusLabel(""))
}
