package repository

import (
	"context"

	"gorm.io/gorm"

	"bookpay/internal/models"
)

// IdentityRepository handles auth user and profile rows.
type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// FindByEmail returns the profile for an already-normalized email.
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, wrap("find profile by email", err)
	}
	return &profile, nil
}

// FindByID returns a profile by ID.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, wrap("find profile", err)
	}
	return &profile, nil
}

// CreateAuthUser inserts an auth user. A taken email yields ErrDuplicateKey.
func (r *IdentityRepository) CreateAuthUser(ctx context.Context, user *models.AuthUser) error {
	return wrap("create auth user", r.db.WithContext(ctx).Create(user).Error)
}

// CreateProfile inserts a profile. A taken email yields ErrDuplicateKey.
func (r *IdentityRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	return wrap("create profile", r.db.WithContext(ctx).Create(profile).Error)
}

// BackfillContact sets full_name and phone only where they are still empty.
func (r *IdentityRepository) BackfillContact(ctx context.Context, id, fullName, phone string) error {
	db := r.db.WithContext(ctx).Model(&models.Profile{})
	if fullName != "" {
		err := db.Where("id = ? AND (full_name = '' OR full_name IS NULL)", id).
			Update("full_name", fullName).Error
		if err != nil {
			return wrap("backfill full name", err)
		}
	}
	if phone != "" {
		err := r.db.WithContext(ctx).Model(&models.Profile{}).
			Where("id = ? AND (phone = '' OR phone IS NULL)", id).
			Update("phone", phone).Error
		if err != nil {
			return wrap("backfill phone", err)
		}
	}
	return nil
}
