package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrGatewayUnavailable is a transport failure or 5xx from the gateway.
	// Callers may retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected means the gateway answered status:false.
	ErrGatewayRejected = errors.New("payment gateway rejected request")
	// ErrInvalidMetadata means transaction metadata failed to decode or validate.
	ErrInvalidMetadata = errors.New("invalid payment metadata")
	// ErrSignatureInvalid means a webhook body did not match its signature.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
)

// Gateway is the payment provider contract.
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*TransactionResult, error)
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// InitializeRequest starts a hosted checkout. Amount is in minor units.
type InitializeRequest struct {
	Email       string
	Amount      int64
	Reference   string
	CallbackURL string
	Metadata    *Metadata
}

// InitializeResult is where to send the customer to pay.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// TransactionResult is the gateway's authoritative view of a transaction.
// Success is false, without error, for declined or abandoned charges.
type TransactionResult struct {
	Success         bool
	Status          string
	Reference       string
	Amount          int64
	PaidAt          time.Time
	CustomerEmail   string
	GatewayResponse string
	RawMetadata     json.RawMessage
}

// Gateway transaction statuses.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusReversed  = "reversed"
	StatusNotFound  = "not_found"
)
