package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bookpay/internal/pkg/utils"
)

var validate = validator.New()

// Metadata is the typed form of the metadata attached to a transaction at
// initialize time.
type Metadata struct {
	BookingID     string     `json:"booking_id,omitempty" validate:"omitempty,uuid"`
	ServiceID     string     `json:"service_id,omitempty" validate:"omitempty,uuid"`
	ServiceName   string     `json:"service_name,omitempty" validate:"max=200"`
	CustomerName  string     `json:"customer_name,omitempty" validate:"max=100"`
	CustomerEmail string     `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerPhone string     `json:"customer_phone,omitempty" validate:"max=20"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	Notes         string     `json:"notes,omitempty" validate:"max=500"`
}

// Both snake_case and camelCase keys are accepted.
var metadataKeys = map[string][]string{
	"booking_id":     {"booking_id", "bookingId"},
	"service_id":     {"service_id", "serviceId"},
	"service_name":   {"service_name", "serviceName"},
	"customer_name":  {"customer_name", "customerName", "full_name", "fullName"},
	"customer_email": {"customer_email", "customerEmail", "email"},
	"customer_phone": {"customer_phone", "customerPhone", "phone"},
	"scheduled_at":   {"scheduled_at", "scheduledAt"},
	"notes":          {"notes"},
}

// ParseMetadata decodes raw metadata without requiring a booking target.
// Gateways return metadata as an object, a JSON-encoded string, or empty;
// all three are accepted.
func ParseMetadata(raw json.RawMessage) (*Metadata, error) {
	fields, err := metadataFields(raw)
	if err != nil {
		return nil, err
	}

	m := &Metadata{
		BookingID:     pick(fields, "booking_id"),
		ServiceID:     pick(fields, "service_id"),
		ServiceName:   pick(fields, "service_name"),
		CustomerName:  pick(fields, "customer_name"),
		CustomerEmail: strings.ToLower(pick(fields, "customer_email")),
		CustomerPhone: pick(fields, "customer_phone"),
		Notes:         pick(fields, "notes"),
	}
	at, err := utils.ParseSchedule(pick(fields, "scheduled_at"))
	if err != nil {
		return nil, fmt.Errorf("%w: scheduled_at: %v", ErrInvalidMetadata, err)
	}
	m.ScheduledAt = at

	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return m, nil
}

// DecodeMetadata decodes raw metadata and requires a booking or service to
// attach the payment to.
func DecodeMetadata(raw json.RawMessage) (*Metadata, error) {
	m, err := ParseMetadata(raw)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the metadata names something to book.
func (m *Metadata) Validate() error {
	if m.BookingID == "" && m.ServiceID == "" {
		return fmt.Errorf("%w: booking_id or service_id is required", ErrInvalidMetadata)
	}
	return nil
}

// Map renders the metadata for the gateway's initialize call.
func (m *Metadata) Map() map[string]interface{} {
	out := map[string]interface{}{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("booking_id", m.BookingID)
	set("service_id", m.ServiceID)
	set("service_name", m.ServiceName)
	set("customer_name", m.CustomerName)
	set("customer_email", m.CustomerEmail)
	set("customer_phone", m.CustomerPhone)
	set("notes", m.Notes)
	if m.ScheduledAt != nil {
		out["scheduled_at"] = m.ScheduledAt.UTC().Format(time.RFC3339)
	}
	return out
}

func metadataFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) || bytes.Equal(raw, []byte("0")) {
		return map[string]json.RawMessage{}, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		return metadataFields(json.RawMessage(inner))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return fields, nil
}

// pick returns the first string value among the accepted keys for name.
func pick(fields map[string]json.RawMessage, name string) string {
	for _, key := range metadataKeys[name] {
		v, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
