package models

import "encoding/json"

// APIResponse is the standard JSON envelope for the booking API.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Booking API Request Payloads ---

type CreateBookingRequest struct {
	FullName    string `json:"fullName" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,min=10,max=15,phone"`
	ServiceID   string `json:"serviceId" validate:"required,uuid"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
	Notes       string `json:"notes,omitempty" validate:"max=500"`
}

type CreateBookingResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Service   string `json:"service"`
}

// --- Payment API Request Payloads ---

type InitializePaymentRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Amount    int64           `json:"amount" validate:"required,gt=0"`
	Reference string          `json:"reference,omitempty" validate:"omitempty,max=100"`
	Metadata  json.RawMessage `json:"metadata"`
}

type InitializePaymentResponse struct {
	Success          bool   `json:"success"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyPaymentData is the data block of a verify response. Status is one
// of success, failed or pending.
type VerifyPaymentData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	BookingID string `json:"booking_id,omitempty"`
}

// WebhookAck is returned to the gateway once an event is handled.
type WebhookAck struct {
	Received bool `json:"received"`
}
