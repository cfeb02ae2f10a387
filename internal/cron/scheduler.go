package cron

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookpay/internal/config"
	"bookpay/internal/notify"
	"bookpay/internal/pkg/utils"
	"bookpay/internal/reconcile"
	"bookpay/internal/repository"
)

const (
	jobTimeout    = 2 * time.Minute
	reminderBatch = 100
	sweepBatch    = 200
)

// Reconciler re-runs reconciliation for a reference.
type Reconciler interface {
	Reconcile(ctx context.Context, t reconcile.Trigger) (*reconcile.Outcome, error)
}

// ReminderSender delivers a session reminder.
type ReminderSender interface {
	SessionReminder(ctx context.Context, msg notify.Message) error
}

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron       *cron.Cron
	cfg        config.CronConfig
	store      *repository.Store
	reconciler Reconciler
	reminders  ReminderSender
	logger     *zap.Logger
	now        func() time.Time
	sweepBatch int
}

// New creates a new cron scheduler.
func New(cfg config.CronConfig, store *repository.Store, reconciler Reconciler, reminders ReminderSender, logger *zap.Logger) *Scheduler {
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = 1
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		cfg:        cfg,
		store:      store,
		reconciler: reconciler,
		reminders:  reminders,
		logger:     logger,
		now:        time.Now,
		sweepBatch: sweepBatch,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	// Session reminders
	if _, err := s.cron.AddFunc(s.cfg.ReminderSpec, func() {
		s.logger.Debug("Running: session reminders")
		s.run("sessionReminders", s.sendReminders)
	}); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.cfg.ReminderSpec, err)
	}

	// Stale pending payment sweep
	if _, err := s.cron.AddFunc(s.cfg.SweepSpec, func() {
		s.logger.Debug("Running: stale payment sweep")
		s.run("stalePaymentSweep", s.sweepStalePayments)
	}); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.cfg.SweepSpec, err)
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int, error)) {
	defer s.recoverFromPanic(name)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := job(ctx)
	if err != nil {
		s.logger.Error("Cron job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("Cron job completed", zap.String("job", name), zap.Int("processed", n))
}

// ── Session reminders ────────────────────────────────────────────────

// sendReminders emails every confirmed booking starting within the reminder
// window. Each booking is claimed first so overlapping runs or replicas
// send one reminder at most.
func (s *Scheduler) sendReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	bookings, err := s.store.Bookings.ListDueReminders(ctx, now, now.Add(s.cfg.ReminderWindow), reminderBatch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range bookings {
		log := s.logger.With(zap.String("booking_id", b.ID))
		if b.Profile == nil || b.Profile.Email == "" {
			log.Warn("Booking has no contact email, skipping reminder")
			continue
		}

		claimed, err := s.store.Bookings.MarkReminderSent(ctx, b.ID, now)
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}

		msg := notify.Message{
			To:           b.Profile.Email,
			CustomerName: b.Profile.FullName,
			ScheduledAt:  utils.FormatSchedule(b.ScheduledAt),
			BookingID:    b.ID,
			MeetLink:     b.MeetLink,
		}
		if b.Service != nil {
			msg.ServiceName = b.Service.Name
		}
		if err := s.reminders.SessionReminder(ctx, msg); err != nil {
			log.Warn("Failed to send session reminder", zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// ── Stale pending payments ───────────────────────────────────────────

// sweepStalePayments re-reconciles pending ledger records whose webhook
// never arrived. Every checked record is touched so a backlog larger than
// one batch rotates through the window.
func (s *Scheduler) sweepStalePayments(ctx context.Context) (int, error) {
	now := s.now().UTC()
	stale, err := s.store.Payments.ListStalePending(ctx, now.Add(-s.cfg.SweepStaleAfter), now.Add(-s.cfg.SweepMaxAge), s.sweepBatch)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var healed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SweepWorkers)
	for _, p := range stale {
		g.Go(func() error {
			out, err := s.reconciler.Reconcile(gctx, reconcile.Trigger{
				Reference: p.Reference,
				Channel:   reconcile.ChannelSweep,
				BookingID: p.BookingID,
			})
			if terr := s.store.Payments.TouchPending(gctx, p.Reference, now); terr != nil {
				s.logger.Warn("Failed to mark payment checked", zap.String("reference", p.Reference), zap.Error(terr))
			}
			if err != nil {
				s.logger.Warn("Sweep reconciliation failed", zap.String("reference", p.Reference), zap.Error(err))
				return nil
			}
			if out.Status == reconcile.StatusSuccess && !out.Duplicate {
				healed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := healed.Load(); n > 0 {
		s.logger.Info("Sweep finalized stale payments", zap.Int64("count", n), zap.Int("checked", len(stale)))
	}
	return len(stale), nil
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
