// Package notify delivers customer emails and staff reports. Delivery is
// best effort: failures are logged and never reach the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher fans a confirmed booking out to the customer and staff.
type Dispatcher struct {
	mailer   Mailer
	reporter Reporter
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewDispatcher builds a dispatcher. reporter may be nil.
func NewDispatcher(mailer Mailer, reporter Reporter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		reporter: reporter,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// BookingConfirmed sends the confirmation, the receipt and the staff report
// in the background. It returns immediately.
func (d *Dispatcher) BookingConfirmed(msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		d.sendEmail(ctx, "confirmation", msg, ConfirmationEmail)
		d.sendEmail(ctx, "receipt", msg, ReceiptEmail)
		d.report(ctx, msg)
	}()
}

// SessionReminder sends the reminder email synchronously.
func (d *Dispatcher) SessionReminder(ctx context.Context, msg Message) error {
	email, err := ReminderEmail(msg)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, email)
}

// Wait blocks until queued deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) sendEmail(ctx context.Context, kind string, msg Message, build func(Message) (Email, error)) {
	log := d.logger.With(zap.String("kind", kind), zap.String("reference", msg.Reference))

	if msg.To == "" {
		log.Warn("Skipping email without recipient")
		return
	}
	email, err := build(msg)
	if err != nil {
		log.Error("Failed to render email", zap.Error(err))
		return
	}
	if err := d.mailer.Send(ctx, email); err != nil {
		log.Error("Failed to send email", zap.Error(err))
		return
	}
	log.Info("Email sent", zap.String("to", msg.To))
}

func (d *Dispatcher) report(ctx context.Context, msg Message) {
	if d.reporter == nil {
		return
	}
	text, err := AdminReport(msg)
	if err != nil {
		d.logger.Error("Failed to render admin report", zap.Error(err))
		return
	}
	if err := d.reporter.Report(ctx, text); err != nil {
		d.logger.Warn("Failed to send admin report",
			zap.String("reference", msg.Reference),
			zap.Error(err))
	}
}
