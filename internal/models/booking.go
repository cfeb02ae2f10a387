package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking statuses. completed and cancelled are terminal.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Booking maps to the `bookings` table.
type Booking struct {
	ID             string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID         string     `gorm:"column:user_id;size:36;index" json:"user_id"`
	ServiceID      string     `gorm:"column:service_id;size:36;index" json:"service_id"`
	Status         string     `gorm:"column:status;size:20;index" json:"status"`
	ScheduledAt    *time.Time `gorm:"column:scheduled_at;index" json:"scheduled_at"`
	MeetLink       string     `gorm:"column:meet_link;size:500" json:"meet_link,omitempty"`
	Notes          string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ReminderSentAt *time.Time `gorm:"column:reminder_sent_at" json:"-"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Service  *Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Profile  *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Payments []Payment `gorm:"foreignKey:BookingID" json:"payments,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
