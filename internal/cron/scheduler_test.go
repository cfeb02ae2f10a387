package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bookpay/internal/account"
	"bookpay/internal/bootstrap"
	"bookpay/internal/config"
	"bookpay/internal/models"
	"bookpay/internal/notify"
	"bookpay/internal/reconcile"
	"bookpay/internal/repository"
	"bookpay/internal/testutil"
)

type fakeReconciler struct {
	mu       sync.Mutex
	triggers []reconcile.Trigger
	fail     map[string]bool
}

func (f *fakeReconciler) Reconcile(_ context.Context, t reconcile.Trigger) (*reconcile.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, t)
	if f.fail[t.Reference] {
		return nil, errors.New("gateway unavailable")
	}
	return &reconcile.Outcome{Reference: t.Reference, Status: reconcile.StatusSuccess}, nil
}

type fakeReminders struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (f *fakeReminders) SessionReminder(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func newScheduler(t *testing.T) (*Scheduler, *gorm.DB, *fakeReconciler, *fakeReminders) {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	rec := &fakeReconciler{fail: map[string]bool{}}
	rem := &fakeReminders{}
	s := New(config.CronConfig{
		ReminderSpec:    "0 */15 * * * *",
		ReminderWindow:  24 * time.Hour,
		SweepSpec:       "0 */5 * * * *",
		SweepStaleAfter: 10 * time.Minute,
		SweepMaxAge:     48 * time.Hour,
		SweepWorkers:    3,
	}, store, rec, rem, zap.NewNop())
	return s, db, rec, rem
}

func confirmedBooking(t *testing.T, store *repository.Store, email string, at time.Time) *models.Booking {
	t.Helper()
	ctx := context.Background()
	profile, err := account.NewProvisioner(store, zap.NewNop()).EnsureIdentity(ctx, email, "Ada Obi", "08012345678")
	require.NoError(t, err)
	b, err := store.Bookings.CreateConfirmed(ctx, profile.ID, bootstrap.ServiceID("devops-mentoring"), &at, "")
	require.NoError(t, err)
	return b
}

func TestSendReminders(t *testing.T) {
	s, _, _, rem := newScheduler(t)
	now := time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	due := confirmedBooking(t, s.store, "ada@example.com", now.Add(20*time.Hour))
	confirmedBooking(t, s.store, "late@example.com", now.Add(30*time.Hour))
	confirmedBooking(t, s.store, "past@example.com", now.Add(-time.Hour))

	n, err := s.sendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rem.msgs, 1)
	msg := rem.msgs[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Ada Obi", msg.CustomerName)
	assert.Equal(t, "DevOps 1-on-1 Mentoring", msg.ServiceName)
	assert.Equal(t, due.ID, msg.BookingID)
	assert.Contains(t, msg.ScheduledAt, "November 2026")

	n, err = s.sendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "a reminder is sent once per booking")
	assert.Len(t, rem.msgs, 1)
}

func TestSendRemindersSkipsPendingBookings(t *testing.T) {
	s, _, _, rem := newScheduler(t)
	now := time.Now().UTC()
	at := now.Add(2 * time.Hour)
	_, err := s.store.Bookings.CreatePending(context.Background(), "someone", bootstrap.ServiceID("cv-review"), &at, "")
	require.NoError(t, err)

	n, err := s.sendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rem.msgs)
}

func TestSweepStalePayments(t *testing.T) {
	s, db, rec, _ := newScheduler(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, ref := range []string{"STALE-1", "STALE-2", "STALE-3", "ANCIENT"} {
		_, err := s.store.Payments.CreatePending(ctx, "b-"+ref, ref, 1500000)
		require.NoError(t, err)
	}
	_, err := s.store.Payments.TryRecordSuccess(ctx, "b-done", "DONE", 1500000, now)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("paystack_reference = ?", "ANCIENT").
		Update("created_at", now.Add(-72*time.Hour)).Error)

	rec.fail["STALE-2"] = true
	s.now = func() time.Time { return now.Add(15 * time.Minute) }

	n, err := s.sweepStalePayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	refs := map[string]reconcile.Trigger{}
	for _, tr := range rec.triggers {
		refs[tr.Reference] = tr
	}
	assert.Len(t, refs, 3)
	assert.NotContains(t, refs, "ANCIENT")
	assert.NotContains(t, refs, "DONE")
	assert.Equal(t, reconcile.ChannelSweep, refs["STALE-1"].Channel)
	assert.Equal(t, "b-STALE-1", refs["STALE-1"].BookingID)
}

func TestSweepRotatesThroughBacklog(t *testing.T) {
	s, db, rec, _ := newScheduler(t)
	ctx := context.Background()
	now := time.Now().UTC()
	s.sweepBatch = 2

	refs := []string{"OLD-1", "OLD-2", "OLD-3"}
	for i, ref := range refs {
		_, err := s.store.Payments.CreatePending(ctx, "b-"+ref, ref, 1500000)
		require.NoError(t, err)
		require.NoError(t, db.Model(&models.Payment{}).
			Where("paystack_reference = ?", ref).
			UpdateColumn("updated_at", now.Add(time.Duration(i)*time.Second)).Error)
	}

	s.now = func() time.Time { return now.Add(15 * time.Minute) }
	n, err := s.sweepStalePayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s.now = func() time.Time { return now.Add(20 * time.Minute) }
	n, err = s.sweepStalePayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	seen := map[string]int{}
	for _, tr := range rec.triggers {
		seen[tr.Reference]++
	}
	assert.Len(t, seen, 3, "the row past the first batch is checked on the next run")
	assert.Equal(t, 1, seen["OLD-3"])

	p, err := s.store.Payments.FindByReference(ctx, "OLD-3")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(20*time.Minute), p.UpdatedAt, time.Second)
}

func TestSweepSkipsFreshPayments(t *testing.T) {
	s, _, rec, _ := newScheduler(t)
	ctx := context.Background()
	_, err := s.store.Payments.CreatePending(ctx, "b-1", "FRESH", 100)
	require.NoError(t, err)

	n, err := s.sweepStalePayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.triggers)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _, _, _ := newScheduler(t)
	s.cfg.SweepSpec = "not a spec"
	require.Error(t, s.Start())
	<-s.Stop().Done()
}

func TestRunRecoversFromPanic(t *testing.T) {
	s, _, _, _ := newScheduler(t)
	assert.NotPanics(t, func() {
		s.run("boom", func(context.Context) (int, error) { panic("boom") })
	})
}
