package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookpay/internal/bootstrap"
	"bookpay/internal/models"
	"bookpay/internal/testutil"
)

func TestCreatePendingAndConfirmed(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	pending, err := store.Bookings.CreatePending(ctx, "u-1", bootstrap.ServiceID("cv-review"), &at, "please review")
	require.NoError(t, err)
	assert.NotEmpty(t, pending.ID)
	assert.Equal(t, models.BookingPending, pending.Status)

	confirmed, err := store.Bookings.CreateConfirmed(ctx, "u-1", bootstrap.ServiceID("cv-review"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.NotEqual(t, pending.ID, confirmed.ID)

	got, err := store.Bookings.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, at.Equal(*got.ScheduledAt))
	assert.Equal(t, "please review", got.Notes)
}

func TestTransitionStatus(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	b, err := store.Bookings.CreatePending(ctx, "u-1", bootstrap.ServiceID("cv-review"), nil, "")
	require.NoError(t, err)

	moved, err := store.Bookings.TransitionStatus(ctx, b.ID, models.BookingPending, models.BookingConfirmed)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = store.Bookings.TransitionStatus(ctx, b.ID, models.BookingPending, models.BookingConfirmed)
	require.NoError(t, err)
	assert.False(t, moved, "second transition must observe the booking already moved")

	moved, err = store.Bookings.TransitionStatus(ctx, "missing", models.BookingPending, models.BookingConfirmed)
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := store.Bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
}

func TestFindDetailed(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	profile := &models.Profile{ID: "u-1", Email: "a@x.com", FullName: "Ada"}
	require.NoError(t, store.Identities.CreateProfile(ctx, profile))
	b, err := store.Bookings.CreatePending(ctx, profile.ID, bootstrap.ServiceID("career-strategy"), nil, "")
	require.NoError(t, err)
	_, err = store.Payments.CreatePending(ctx, b.ID, "D1", 1000000)
	require.NoError(t, err)

	got, err := store.Bookings.FindDetailed(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Service)
	assert.Equal(t, "Career Strategy Session", got.Service.Name)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "a@x.com", got.Profile.Email)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, "D1", got.Payments[0].Reference)

	_, err = store.Bookings.FindDetailed(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDueRemindersAreClaimedOnce(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	soon := now.Add(3 * time.Hour)
	later := now.Add(72 * time.Hour)
	due, err := store.Bookings.CreateConfirmed(ctx, "u-1", bootstrap.ServiceID("devops-mentoring"), &soon, "")
	require.NoError(t, err)
	_, err = store.Bookings.CreateConfirmed(ctx, "u-1", bootstrap.ServiceID("devops-mentoring"), &later, "")
	require.NoError(t, err)
	_, err = store.Bookings.CreatePending(ctx, "u-1", bootstrap.ServiceID("devops-mentoring"), &soon, "")
	require.NoError(t, err)

	list, err := store.Bookings.ListDueReminders(ctx, now, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)
	require.NotNil(t, list[0].Service)

	claimed, err := store.Bookings.MarkReminderSent(ctx, due.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = store.Bookings.MarkReminderSent(ctx, due.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	list, err = store.Bookings.ListDueReminders(ctx, now, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
