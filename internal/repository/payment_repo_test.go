package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookpay/internal/models"
	"bookpay/internal/testutil"
)

func TestTryRecordSuccessOnlyOnce(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	paidAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := store.Payments.TryRecordSuccess(ctx, "b-1", "R1", 1500000, paidAt)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Payments.TryRecordSuccess(ctx, "b-2", "R1", 1500000, paidAt)
	require.NoError(t, err)
	assert.False(t, created)

	rec, err := store.Payments.FindByReference(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", rec.BookingID)
	assert.Equal(t, models.PaymentSuccess, rec.Status)
	require.NotNil(t, rec.PaidAt)
	assert.True(t, paidAt.Equal(*rec.PaidAt))
}

func TestTryRecordSuccessPromotesPending(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	ok, err := store.Payments.CreatePending(ctx, "b-1", "R2", 750000)
	require.NoError(t, err)
	require.True(t, ok)

	created, err := store.Payments.TryRecordSuccess(ctx, "b-1", "R2", 750000, time.Now())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Payments.TryRecordSuccess(ctx, "b-1", "R2", 750000, time.Now())
	require.NoError(t, err)
	assert.False(t, created)

	assert.EqualValues(t, 1, testutil.CountRows(t, db, &models.Payment{}, "paystack_reference = ?", "R2"))
}

func TestTryRecordSuccessConcurrent(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := store.Payments.TryRecordSuccess(ctx, "b-1", "R3", 1000, time.Now())
			assert.NoError(t, err)
			if created {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.EqualValues(t, 1, testutil.CountRows(t, db, &models.Payment{}, "paystack_reference = ?", "R3"))
}

func TestRecordFailure(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	t.Run("insert then ignore duplicate", func(t *testing.T) {
		require.NoError(t, store.Payments.RecordFailure(ctx, "b-1", "F1", 500))
		require.NoError(t, store.Payments.RecordFailure(ctx, "b-1", "F1", 500))

		assert.EqualValues(t, 1, testutil.CountRows(t, db, &models.Payment{}, "paystack_reference = ?", "F1"))
	})

	t.Run("pending becomes failed", func(t *testing.T) {
		_, err := store.Payments.CreatePending(ctx, "b-2", "F2", 500)
		require.NoError(t, err)
		require.NoError(t, store.Payments.RecordFailure(ctx, "b-2", "F2", 500))

		rec, err := store.Payments.FindByReference(ctx, "F2")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentFailed, rec.Status)
	})

	t.Run("success is never downgraded", func(t *testing.T) {
		_, err := store.Payments.TryRecordSuccess(ctx, "b-3", "F3", 500, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Payments.RecordFailure(ctx, "b-3", "F3", 500))

		rec, err := store.Payments.FindByReference(ctx, "F3")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSuccess, rec.Status)
	})
}

func TestFindByReferenceNotFound(t *testing.T) {
	store := NewStore(testutil.NewDB(t))

	_, err := store.Payments.FindByReference(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasSuccessForBooking(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, store.Payments.RecordFailure(ctx, "b-1", "H1", 100))
	has, err := store.Payments.HasSuccessForBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.Payments.TryRecordSuccess(ctx, "b-1", "H2", 100, time.Now())
	require.NoError(t, err)
	has, err = store.Payments.HasSuccessForBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestListStalePending(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []models.Payment{
		{Reference: "S-old", Status: models.PaymentPending, CreatedAt: now.Add(-30 * time.Minute)},
		{Reference: "S-fresh", Status: models.PaymentPending, CreatedAt: now.Add(-time.Minute)},
		{Reference: "S-ancient", Status: models.PaymentPending, CreatedAt: now.Add(-72 * time.Hour)},
		{Reference: "S-done", Status: models.PaymentSuccess, CreatedAt: now.Add(-30 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	stale, err := store.Payments.ListStalePending(ctx, now.Add(-10*time.Minute), now.Add(-48*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "S-old", stale[0].Reference)
}

func TestTouchPendingReordersStale(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []models.Payment{
		{Reference: "T-1", Status: models.PaymentPending, CreatedAt: now.Add(-40 * time.Minute), UpdatedAt: now.Add(-40 * time.Minute)},
		{Reference: "T-2", Status: models.PaymentPending, CreatedAt: now.Add(-30 * time.Minute), UpdatedAt: now.Add(-30 * time.Minute)},
		{Reference: "T-3", Status: models.PaymentSuccess, CreatedAt: now.Add(-20 * time.Minute), UpdatedAt: now.Add(-20 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	require.NoError(t, store.Payments.TouchPending(ctx, "T-1", now))
	require.NoError(t, store.Payments.TouchPending(ctx, "T-3", now))

	stale, err := store.Payments.ListStalePending(ctx, now.Add(-10*time.Minute), now.Add(-48*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "T-2", stale[0].Reference, "the record checked longest ago comes first")

	done, err := store.Payments.FindByReference(ctx, "T-3")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(-20*time.Minute), done.UpdatedAt, time.Second, "finalized records are not touched")
}
