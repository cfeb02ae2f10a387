package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookpay/internal/models"
	"bookpay/internal/testutil"
)

func TestIdentityUniqueEmail(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, store.Identities.CreateAuthUser(ctx, &models.AuthUser{ID: "u-1", Email: "a@x.com"}))
	err := store.Identities.CreateAuthUser(ctx, &models.AuthUser{ID: "u-2", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	require.NoError(t, store.Identities.CreateProfile(ctx, &models.Profile{ID: "u-1", Email: "a@x.com"}))
	err = store.Identities.CreateProfile(ctx, &models.Profile{ID: "u-2", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestBackfillContactKeepsExistingValues(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, store.Identities.CreateProfile(ctx, &models.Profile{ID: "u-1", Email: "a@x.com", FullName: "Ada"}))
	require.NoError(t, store.Identities.BackfillContact(ctx, "u-1", "Someone Else", "+2348012345678"))

	got, err := store.Identities.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FullName)
	assert.Equal(t, "+2348012345678", got.Phone)
}

func TestServiceCatalog(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	list, err := store.Services.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "cv-review", list[0].Slug)

	svc, err := store.Services.FindBySlug(ctx, "devops-fundamentals")
	require.NoError(t, err)
	assert.EqualValues(t, 2500000, svc.PriceNGN)

	_, err = store.Services.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
