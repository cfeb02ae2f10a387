package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle. A Store passed
// to a Transaction callback is bound to that transaction.
type Store struct {
	db *gorm.DB

	Identities *IdentityRepository
	Services   *ServiceRepository
	Bookings   *BookingRepository
	Payments   *PaymentRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Identities: NewIdentityRepository(db),
		Services:   NewServiceRepository(db),
		Bookings:   NewBookingRepository(db),
		Payments:   NewPaymentRepository(db),
	}
}

// Transaction runs fn inside a database transaction. An error returned by
// fn rolls the transaction back and is returned unchanged.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(NewStore(tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		return wrap("transaction", err)
	}
	return err
}
