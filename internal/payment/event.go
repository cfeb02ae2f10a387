package payment

import (
	"encoding/json"
	"fmt"
)

// Webhook event names handled by the booking flow.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// WebhookEvent is a gateway-pushed notification. Only the fields the
// booking flow uses are decoded; amounts and status are re-read through
// VerifyTransaction before anything is written.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string          `json:"reference"`
		Status    string          `json:"status"`
		Amount    int64           `json:"amount"`
		Metadata  json.RawMessage `json:"metadata"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a webhook body. The signature must already have
// been checked.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if evt.Event == "" {
		return nil, fmt.Errorf("decode webhook event: missing event name")
	}
	return &evt, nil
}

// Handled reports whether the event drives reconciliation.
func (e *WebhookEvent) Handled() bool {
	return e.Event == EventChargeSuccess || e.Event == EventChargeFailed
}

// BookingHint returns the booking id embedded in the event metadata, if any.
func (e *WebhookEvent) BookingHint() string {
	m, err := ParseMetadata(e.Data.Metadata)
	if err != nil {
		return ""
	}
	return m.BookingID
}
