package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bookpay/internal/models"
)

// BookingRepository handles booking database operations.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreatePending creates a booking awaiting payment.
func (r *BookingRepository) CreatePending(ctx context.Context, identityID, serviceID string, scheduledAt *time.Time, notes string) (*models.Booking, error) {
	return r.create(ctx, models.BookingPending, identityID, serviceID, scheduledAt, notes)
}

// CreateConfirmed creates a booking directly in confirmed state. It is only
// used when a verified payment arrives for a booking that does not exist.
func (r *BookingRepository) CreateConfirmed(ctx context.Context, identityID, serviceID string, scheduledAt *time.Time, notes string) (*models.Booking, error) {
	return r.create(ctx, models.BookingConfirmed, identityID, serviceID, scheduledAt, notes)
}

func (r *BookingRepository) create(ctx context.Context, status, identityID, serviceID string, scheduledAt *time.Time, notes string) (*models.Booking, error) {
	booking := &models.Booking{
		UserID:      identityID,
		ServiceID:   serviceID,
		Status:      status,
		ScheduledAt: utcPtr(scheduledAt),
		Notes:       notes,
	}
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, wrap("create booking", err)
	}
	return booking, nil
}

// TransitionStatus moves a booking from one status to another only if it is
// currently in from. It returns false, without error, when the booking is
// in any other status or does not exist.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, wrap("transition booking", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FindByID returns a booking without associations.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, wrap("find booking", err)
	}
	return &booking, nil
}

// FindDetailed returns a booking with its service, profile and payments.
func (r *BookingRepository) FindDetailed(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Profile").
		Preload("Payments").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, wrap("find booking", err)
	}
	return &booking, nil
}

// ListDueReminders returns confirmed bookings scheduled in [from, to) that
// have not had a reminder yet.
func (r *BookingRepository) ListDueReminders(ctx context.Context, from, to time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Profile").
		Where("status = ? AND reminder_sent_at IS NULL", models.BookingConfirmed).
		Where("scheduled_at >= ? AND scheduled_at < ?", from.UTC(), to.UTC()).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, wrap("list due reminders", err)
}

// MarkReminderSent claims the reminder for a booking. Only the first caller
// gets true.
func (r *BookingRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at.UTC())
	if res.Error != nil {
		return false, wrap("mark reminder sent", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
