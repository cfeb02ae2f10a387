package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bookpay/internal/models"
)

// PaymentRepository is the payment ledger. The unique index on the gateway
// reference decides which writer finalizes a payment.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByReference returns the record for a gateway reference.
func (r *PaymentRepository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("paystack_reference = ?", reference).First(&payment).Error; err != nil {
		return nil, wrap("find payment", err)
	}
	return &payment, nil
}

// TryRecordSuccess records a successful payment for reference. A pending or
// failed record under the same reference is promoted in place; otherwise a
// new row is inserted. created is true only for the single caller that
// changed the ledger; a duplicate reference is reported as created=false
// with no error.
func (r *PaymentRepository) TryRecordSuccess(ctx context.Context, bookingID, reference string, amount int64, paidAt time.Time) (bool, error) {
	paid := paidAt.UTC()

	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("paystack_reference = ? AND status <> ?", reference, models.PaymentSuccess).
		Updates(map[string]interface{}{
			"booking_id": bookingID,
			"amount_ngn": amount,
			"status":     models.PaymentSuccess,
			"paid_at":    paid,
		})
	if res.Error != nil {
		return false, wrap("promote payment", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	payment := &models.Payment{
		BookingID: bookingID,
		AmountNGN: amount,
		Reference: reference,
		Status:    models.PaymentSuccess,
		PaidAt:    &paid,
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if IsDuplicateKey(err) {
			return false, nil
		}
		return false, wrap("record payment", err)
	}
	return true, nil
}

// RecordFailure records a failed charge. An existing pending record is
// marked failed; any other existing record is left alone.
func (r *PaymentRepository) RecordFailure(ctx context.Context, bookingID, reference string, amount int64) error {
	payment := &models.Payment{
		BookingID: bookingID,
		AmountNGN: amount,
		Reference: reference,
		Status:    models.PaymentFailed,
	}
	err := r.db.WithContext(ctx).Create(payment).Error
	if err == nil {
		return nil
	}
	if !IsDuplicateKey(err) {
		return wrap("record failed payment", err)
	}
	err = r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("paystack_reference = ? AND status = ?", reference, models.PaymentPending).
		Update("status", models.PaymentFailed).Error
	return wrap("mark payment failed", err)
}

// CreatePending records an initialized, unpaid reference. It returns false
// when the reference is already in the ledger.
func (r *PaymentRepository) CreatePending(ctx context.Context, bookingID, reference string, amount int64) (bool, error) {
	payment := &models.Payment{
		BookingID: bookingID,
		AmountNGN: amount,
		Reference: reference,
		Status:    models.PaymentPending,
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if IsDuplicateKey(err) {
			return false, nil
		}
		return false, wrap("create pending payment", err)
	}
	return true, nil
}

// HasSuccessForBooking reports whether a booking has a successful payment.
func (r *PaymentRepository) HasSuccessForBooking(ctx context.Context, bookingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, models.PaymentSuccess).
		Count(&count).Error
	if err != nil {
		return false, wrap("count booking payments", err)
	}
	return count > 0, nil
}

// ListStalePending returns pending records created in [notBefore, olderThan),
// least recently checked first.
func (r *PaymentRepository) ListStalePending(ctx context.Context, olderThan, notBefore time.Time, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND created_at >= ?", models.PaymentPending, olderThan.UTC(), notBefore.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, wrap("list stale payments", err)
}

// TouchPending marks a pending record as checked at the given time, moving
// it to the back of ListStalePending.
func (r *PaymentRepository) TouchPending(ctx context.Context, reference string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("paystack_reference = ? AND status = ?", reference, models.PaymentPending).
		UpdateColumn("updated_at", at.UTC()).Error
	return wrap("touch pending payment", err)
}
