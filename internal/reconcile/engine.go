// Package reconcile turns a verified gateway outcome into a booking and a
// ledger entry exactly once per reference, whichever channel reports it.
//
// The only mutual exclusion is the unique index on the payment reference:
// racing invocations may both provision an identity and resolve a booking,
// but only the one whose ledger write lands commits and notifies.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookpay/internal/cache"
	"bookpay/internal/models"
	"bookpay/internal/notify"
	"bookpay/internal/payment"
	"bookpay/internal/pkg/utils"
	"bookpay/internal/repository"
)

// Channel identifies what triggered a reconciliation.
type Channel string

const (
	ChannelVerify  Channel = "verify"
	ChannelWebhook Channel = "webhook"
	ChannelSweep   Channel = "sweep"
)

// Status is the customer-visible outcome for a reference.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

var ErrMissingReference = errors.New("reference is required")

// errAlreadyRecorded rolls back a losing invocation's booking writes.
var errAlreadyRecorded = errors.New("reference already recorded")

// conflictRetries is how many times a ledger transaction aborted by lock
// contention is re-run.
const conflictRetries = 1

// Trigger is one request to reconcile a reference.
type Trigger struct {
	Reference string
	Channel   Channel
	// Event is the webhook event name; empty for other channels.
	Event string
	// BookingID is a booking id carried by the triggering payload, used when
	// the verified metadata has none.
	BookingID string
}

// Outcome is the terminal result of a reconciliation.
type Outcome struct {
	Reference     string
	Status        Status
	BookingID     string
	Duplicate     bool
	GatewayStatus string
	Message       string
}

// Verifier is the part of the gateway the engine needs.
type Verifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*payment.TransactionResult, error)
}

// IdentityProvisioner resolves a customer identity by email.
type IdentityProvisioner interface {
	EnsureIdentity(ctx context.Context, email, displayName, phone string) (*models.Profile, error)
}

// Notifier receives one call per newly finalized reference.
type Notifier interface {
	BookingConfirmed(msg notify.Message)
}

type Engine struct {
	store      *repository.Store
	gateway    Verifier
	identities IdentityProvisioner
	cache      cache.ReferenceCache
	notifier   Notifier
	timeout    time.Duration
	logger     *zap.Logger
}

// New builds an engine. refs may be nil.
func New(store *repository.Store, gateway Verifier, identities IdentityProvisioner, refs cache.ReferenceCache, notifier Notifier, timeout time.Duration, logger *zap.Logger) *Engine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		store:      store,
		gateway:    gateway,
		identities: identities,
		cache:      refs,
		notifier:   notifier,
		timeout:    timeout,
		logger:     logger,
	}
}

// Reconcile finalizes t.Reference if the gateway reports it paid. Replays of
// a finalized reference return a Duplicate outcome with no side effects.
// Gateway and store errors are returned so the caller can retry; a payment
// that is simply not successful is an Outcome, not an error.
func (e *Engine) Reconcile(ctx context.Context, t Trigger) (*Outcome, error) {
	if t.Reference == "" {
		return nil, ErrMissingReference
	}
	log := e.logger.With(
		zap.String("reference", t.Reference),
		zap.String("channel", string(t.Channel)),
		zap.String("event", t.Event))

	out, unfinished, err := e.replay(ctx, t, log)
	if err != nil || out != nil {
		return out, err
	}

	// Past the dedup check the invocation runs to completion even if the
	// caller disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	res, err := e.gateway.VerifyTransaction(ctx, t.Reference)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", t.Reference, err)
	}
	if !res.Success {
		if t.Event == payment.EventChargeFailed {
			return e.recordFailure(ctx, t, res, log)
		}
		log.Info("Payment not successful", zap.String("gateway_status", res.Status))
		return &Outcome{
			Reference:     t.Reference,
			Status:        statusFor(res.Status),
			GatewayStatus: res.Status,
			Message:       "Payment not successful",
		}, nil
	}

	return e.finalize(ctx, t, res, unfinished, log)
}

// replay returns a non-nil Outcome when the reference needs no more work.
// Otherwise it returns the reference's unfinished ledger record, if any.
func (e *Engine) replay(ctx context.Context, t Trigger, log *zap.Logger) (*Outcome, *models.Payment, error) {
	if e.cache != nil {
		bookingID, ok, err := e.cache.Lookup(ctx, t.Reference)
		switch {
		case err != nil:
			log.Warn("Reference cache lookup failed", zap.Error(err))
		case ok:
			log.Debug("Reference already finalized (cache)")
			return duplicate(t.Reference, StatusSuccess, bookingID), nil, nil
		}
	}

	rec, err := e.store.Payments.FindByReference(ctx, t.Reference)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil, nil
	case err != nil:
		return nil, nil, err
	}

	switch {
	case rec.Status == models.PaymentSuccess:
		log.Info("Reference already finalized", zap.String("booking_id", rec.BookingID))
		e.remember(ctx, t.Reference, rec.BookingID, log)
		return duplicate(t.Reference, StatusSuccess, rec.BookingID), nil, nil
	case rec.Status == models.PaymentFailed && t.Event == payment.EventChargeFailed:
		log.Info("Failed charge already recorded")
		return duplicate(t.Reference, StatusFailed, rec.BookingID), nil, nil
	}
	return nil, rec, nil
}

func (e *Engine) finalize(ctx context.Context, t Trigger, res *payment.TransactionResult, unfinished *models.Payment, log *zap.Logger) (*Outcome, error) {
	meta, err := payment.ParseMetadata(res.RawMetadata)
	if err != nil {
		return nil, err
	}
	if meta.BookingID == "" {
		meta.BookingID = t.BookingID
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	email := res.CustomerEmail
	if email == "" {
		email = meta.CustomerEmail
	}
	profile, err := e.identities.EnsureIdentity(ctx, email, meta.CustomerName, meta.CustomerPhone)
	if err != nil {
		return nil, fmt.Errorf("ensure identity: %w", err)
	}

	paidAt := res.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var (
		booking *models.Booking
		service *models.Service
	)
	for attempt := 1; ; attempt++ {
		booking, service, err = e.record(ctx, t.Reference, profile, meta, res.Amount, paidAt, log)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		// InnoDB may abort one of two first inserts of a reference as a
		// deadlock; the other one may already be committed.
		log.Warn("Ledger write conflicted", zap.Int("attempt", attempt), zap.Error(err))
		out, _, rerr := e.replay(ctx, t, log)
		if rerr != nil || out != nil {
			return out, rerr
		}
		if attempt > conflictRetries {
			return nil, err
		}
	}
	if errors.Is(err, errAlreadyRecorded) {
		return e.lostRace(ctx, t, log)
	}
	if err != nil {
		return nil, err
	}

	checkAmount(res.Amount, unfinished, service, log)
	log.Info("Payment reconciled",
		zap.String("booking_id", booking.ID),
		zap.String("identity_id", profile.ID),
		zap.Int64("amount", res.Amount))
	e.remember(ctx, t.Reference, booking.ID, log)

	if e.notifier != nil {
		e.notifier.BookingConfirmed(confirmationMessage(t.Reference, profile, meta, booking, service, res.Amount))
	}

	return &Outcome{
		Reference:     t.Reference,
		Status:        StatusSuccess,
		BookingID:     booking.ID,
		GatewayStatus: res.Status,
		Message:       "Payment verified",
	}, nil
}

// record resolves the booking and writes the success ledger entry in one
// transaction. It returns errAlreadyRecorded when another invocation holds
// the reference.
func (e *Engine) record(ctx context.Context, reference string, profile *models.Profile, meta *payment.Metadata, amount int64, paidAt time.Time, log *zap.Logger) (*models.Booking, *models.Service, error) {
	var (
		booking *models.Booking
		service *models.Service
	)
	err := e.store.Transaction(ctx, func(tx *repository.Store) error {
		b, svc, err := e.resolveBooking(ctx, tx, profile, meta, log)
		if err != nil {
			return err
		}
		created, err := tx.Payments.TryRecordSuccess(ctx, b.ID, reference, amount, paidAt)
		if err != nil {
			return err
		}
		if !created {
			return errAlreadyRecorded
		}
		booking, service = b, svc
		return nil
	})
	return booking, service, err
}

// checkAmount warns when the verified amount is not what checkout asked for.
// The payment is recorded either way.
func checkAmount(paid int64, unfinished *models.Payment, svc *models.Service, log *zap.Logger) {
	var expected int64
	switch {
	case unfinished != nil && unfinished.AmountNGN > 0:
		expected = unfinished.AmountNGN
	case svc != nil:
		expected = svc.PriceNGN
	default:
		return
	}
	if paid != expected {
		log.Warn("Paid amount differs from expected",
			zap.Int64("paid", paid),
			zap.Int64("expected", expected))
	}
}

// resolveBooking confirms the booking named in metadata, or creates a
// confirmed one when there is none. It runs inside the ledger transaction.
func (e *Engine) resolveBooking(ctx context.Context, tx *repository.Store, profile *models.Profile, meta *payment.Metadata, log *zap.Logger) (*models.Booking, *models.Service, error) {
	if meta.BookingID != "" {
		b, err := tx.Bookings.FindByID(ctx, meta.BookingID)
		switch {
		case err == nil:
			moved, err := tx.Bookings.TransitionStatus(ctx, b.ID, models.BookingPending, models.BookingConfirmed)
			if err != nil {
				return nil, nil, err
			}
			if moved {
				b.Status = models.BookingConfirmed
			} else {
				// Not an error: the ledger write below decides the winner.
				log.Info("Booking not pending, leaving status as is",
					zap.String("booking_id", b.ID),
					zap.String("status", b.Status))
			}
			svc, err := tx.Services.FindByID(ctx, b.ServiceID)
			if err != nil {
				log.Warn("Booking service lookup failed", zap.String("service_id", b.ServiceID), zap.Error(err))
				svc = nil
			}
			return b, svc, nil
		case errors.Is(err, repository.ErrNotFound):
			log.Warn("Booking in metadata does not exist, creating one", zap.String("booking_id", meta.BookingID))
		default:
			return nil, nil, err
		}
	}

	if meta.ServiceID == "" {
		return nil, nil, fmt.Errorf("%w: booking %s not found and no service_id", payment.ErrInvalidMetadata, meta.BookingID)
	}
	svc, err := tx.Services.FindByID(ctx, meta.ServiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: unknown service %s", payment.ErrInvalidMetadata, meta.ServiceID)
	}
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.Bookings.CreateConfirmed(ctx, profile.ID, svc.ID, meta.ScheduledAt, meta.Notes)
	if err != nil {
		return nil, nil, err
	}
	return b, svc, nil
}

// lostRace reports the winner's booking after a concurrent invocation
// recorded the reference first.
func (e *Engine) lostRace(ctx context.Context, t Trigger, log *zap.Logger) (*Outcome, error) {
	log.Info("Reference recorded by a concurrent invocation")
	out := duplicate(t.Reference, StatusSuccess, "")
	rec, err := e.store.Payments.FindByReference(ctx, t.Reference)
	if err != nil {
		log.Warn("Could not read winning ledger record", zap.Error(err))
		return out, nil
	}
	out.BookingID = rec.BookingID
	e.remember(ctx, t.Reference, rec.BookingID, log)
	return out, nil
}

// recordFailure handles a verified failed charge. Cancelling the booking is
// best effort.
func (e *Engine) recordFailure(ctx context.Context, t Trigger, res *payment.TransactionResult, log *zap.Logger) (*Outcome, error) {
	out := &Outcome{
		Reference:     t.Reference,
		Status:        StatusFailed,
		GatewayStatus: res.Status,
		Message:       "Payment failed",
	}

	bookingID := t.BookingID
	if meta, err := payment.ParseMetadata(res.RawMetadata); err == nil && meta.BookingID != "" {
		bookingID = meta.BookingID
	}
	if bookingID == "" {
		log.Info("Failed charge without a booking, nothing to record")
		return out, nil
	}

	b, err := e.store.Bookings.FindByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("Failed charge for unknown booking", zap.String("booking_id", bookingID))
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.store.Payments.RecordFailure(ctx, b.ID, t.Reference, res.Amount); err != nil {
		return nil, err
	}
	out.BookingID = b.ID
	e.cancelBooking(ctx, b, log)
	return out, nil
}

func (e *Engine) cancelBooking(ctx context.Context, b *models.Booking, log *zap.Logger) {
	log = log.With(zap.String("booking_id", b.ID))

	moved, err := e.store.Bookings.TransitionStatus(ctx, b.ID, models.BookingPending, models.BookingCancelled)
	if err != nil {
		log.Warn("Failed to cancel booking", zap.Error(err))
		return
	}
	if moved {
		log.Info("Booking cancelled after failed charge")
		return
	}

	current, err := e.store.Bookings.FindByID(ctx, b.ID)
	if err != nil {
		log.Warn("Failed to re-read booking", zap.Error(err))
		return
	}
	if current.Status != models.BookingConfirmed {
		return
	}
	// A confirmed booking paid under another reference stays confirmed.
	paid, err := e.store.Payments.HasSuccessForBooking(ctx, b.ID)
	if err != nil {
		log.Warn("Failed to check booking payments", zap.Error(err))
		return
	}
	if paid {
		log.Info("Booking already paid, not cancelling")
		return
	}
	moved, err = e.store.Bookings.TransitionStatus(ctx, b.ID, models.BookingConfirmed, models.BookingCancelled)
	if err != nil {
		log.Warn("Failed to cancel booking", zap.Error(err))
		return
	}
	if moved {
		log.Info("Confirmed booking cancelled after failed charge")
	}
}

func (e *Engine) remember(ctx context.Context, reference, bookingID string, log *zap.Logger) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Remember(ctx, reference, bookingID); err != nil {
		log.Warn("Failed to cache finalized reference", zap.Error(err))
	}
}

func duplicate(reference string, status Status, bookingID string) *Outcome {
	return &Outcome{
		Reference: reference,
		Status:    status,
		BookingID: bookingID,
		Duplicate: true,
		Message:   "Payment already processed",
	}
}

// statusFor maps a non-successful gateway status to what the customer sees.
func statusFor(gatewayStatus string) Status {
	switch gatewayStatus {
	case payment.StatusFailed, payment.StatusReversed, payment.StatusNotFound:
		return StatusFailed
	default:
		return StatusPending
	}
}

func confirmationMessage(reference string, profile *models.Profile, meta *payment.Metadata, b *models.Booking, svc *models.Service, amount int64) notify.Message {
	serviceName := meta.ServiceName
	if serviceName == "" && svc != nil {
		serviceName = svc.Name
	}
	customerName := profile.FullName
	if customerName == "" {
		customerName = meta.CustomerName
	}
	return notify.Message{
		To:           profile.Email,
		CustomerName: customerName,
		ServiceName:  serviceName,
		ScheduledAt:  utils.FormatSchedule(b.ScheduledAt),
		Amount:       utils.FormatPrice(amount),
		Reference:    reference,
		BookingID:    b.ID,
		MeetLink:     b.MeetLink,
	}
}
