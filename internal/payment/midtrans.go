package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// Provider is the name stored on ledger rows written from Midtrans.
const Provider = "midtrans"

// SnapClient is the part of *snap.Client checkout needs.
type SnapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// NewSnapClient builds a Snap client for the sandbox or production API.
func NewSnapClient(serverKey string, production bool) *snap.Client {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var c snap.Client
	c.New(serverKey, env)
	return &c
}

// Notification is the HTTP notification body Midtrans posts on every
// transaction status change.
type Notification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	CustomField1      string `json:"custom_field1"`
	CustomField2      string `json:"custom_field2"`
}

// Signature is SHA512(order_id + status_code + gross_amount + server_key), hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks n against serverKey in constant time.
func VerifySignature(n Notification, serverKey string) bool {
	if serverKey == "" || n.SignatureKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}

// Settled reports whether the notification means the money arrived.
// A card capture counts only when fraud screening accepted it.
func (n Notification) Settled() bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "" || n.FraudStatus == "accept"
	default:
		return false
	}
}

const (
	statusInvalidSignature = "invalid_signature"
	statusOther            = "other"
)

// knownStatuses bounds the metric label set.
var knownStatuses = map[string]bool{
	"settlement": true,
	"capture":    true,
	"pending":    true,
	"deny":       true,
	"cancel":     true,
	"expire":     true,
	"refund":     true,
}

func statusLabel(status string) string {
	if knownStatuses[status] {
		return status
	}
	return statusOther
}

// Ref is the provider reference stored on the ledger row.
func (n Notification) Ref() string {
	if n.TransactionID != "" {
		return n.TransactionID
	}
	return n.OrderID
}
