package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment maps to the `payments` table. Reference is the gateway
// reference and is unique for the lifetime of the system.
type Payment struct {
	ID        string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	BookingID string     `gorm:"column:booking_id;size:36;index" json:"booking_id"`
	AmountNGN int64      `gorm:"column:amount_ngn" json:"amount_ngn"`
	Reference string     `gorm:"column:paystack_reference;size:100;uniqueIndex" json:"paystack_reference"`
	Status    string     `gorm:"column:status;size:20;index" json:"status"`
	PaidAt    *time.Time `gorm:"column:paid_at" json:"paid_at"`
	CreatedAt time.Time  `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
