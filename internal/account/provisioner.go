// Package account provisions customer identities keyed by email.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookpay/internal/models"
	"bookpay/internal/repository"
)

var (
	// ErrAuthIdentity means the auth user could not be created; no profile
	// row is left behind.
	ErrAuthIdentity = errors.New("auth identity creation failed")
	ErrInvalidEmail = errors.New("email is required")
)

// Provisioner returns the existing identity for an email or creates one.
type Provisioner struct {
	store  *repository.Store
	logger *zap.Logger
}

func NewProvisioner(store *repository.Store, logger *zap.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger}
}

// EnsureIdentity is idempotent by email. Concurrent calls for the same email
// converge on one identity: the loser of the insert race re-reads the
// winner's row.
func (p *Provisioner) EnsureIdentity(ctx context.Context, email, displayName, phone string) (*models.Profile, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	displayName = strings.TrimSpace(displayName)
	phone = strings.TrimSpace(phone)

	profile, err := p.store.Identities.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return p.backfill(ctx, profile, displayName, phone)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	profile, err = p.create(ctx, email, displayName, phone)
	if err == nil {
		p.logger.Info("Created customer identity",
			zap.String("identity_id", profile.ID),
			zap.String("email", email))
		return profile, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, err
	}

	p.logger.Debug("Identity created concurrently, re-reading", zap.String("email", email))
	profile, err = p.store.Identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("re-read identity after race: %w", err)
	}
	return p.backfill(ctx, profile, displayName, phone)
}

func (p *Provisioner) create(ctx context.Context, email, displayName, phone string) (*models.Profile, error) {
	id := uuid.NewString()
	profile := &models.Profile{
		ID:       id,
		Email:    email,
		FullName: displayName,
		Phone:    phone,
		Role:     models.RoleUser,
	}

	err := p.store.Transaction(ctx, func(tx *repository.Store) error {
		user := &models.AuthUser{ID: id, Email: email, EmailConfirmed: true}
		if err := tx.Identities.CreateAuthUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrAuthIdentity, err)
		}
		return tx.Identities.CreateProfile(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (p *Provisioner) backfill(ctx context.Context, profile *models.Profile, displayName, phone string) (*models.Profile, error) {
	name := ""
	if profile.FullName == "" && displayName != "" {
		name = displayName
	}
	tel := ""
	if profile.Phone == "" && phone != "" {
		tel = phone
	}
	if name == "" && tel == "" {
		return profile, nil
	}
	if err := p.store.Identities.BackfillContact(ctx, profile.ID, name, tel); err != nil {
		return nil, err
	}
	if name != "" {
		profile.FullName = name
	}
	if tel != "" {
		profile.Phone = tel
	}
	return profile, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
