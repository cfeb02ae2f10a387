package bootstrap

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bookpay/internal/models"
)

// MigrateAndSeed ensures required tables exist and inserts the service catalog.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		// Identity
		&models.AuthUser{},
		&models.Profile{},
		// Catalog
		&models.Service{},
		// Bookings and the payment ledger
		&models.Booking{},
		&models.Payment{},
	}
}

// ServiceID returns the stable catalog ID for a slug, so that seeded IDs are
// identical across environments.
func ServiceID(slug string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("bookpay:service:"+slug)).String()
}

func minutes(n int) *int {
	return &n
}

// DefaultServices is the seeded catalog. Prices are in kobo.
func DefaultServices() []models.Service {
	rows := []models.Service{
		{
			Name:            "DevOps 1-on-1 Mentoring",
			Slug:            "devops-mentoring",
			Description:     "Personalized mentoring session covering DevOps practices, tooling and career guidance.",
			Type:            models.ServiceVideoCall,
			PriceNGN:        1500000,
			DurationMinutes: minutes(60),
		},
		{
			Name:        "Tech CV Review",
			Slug:        "cv-review",
			Description: "Detailed review of your tech CV with written feedback and suggested improvements.",
			Type:        models.ServiceAsync,
			PriceNGN:    750000,
		},
		{
			Name:            "Career Strategy Session",
			Slug:            "career-strategy",
			Description:     "Plan your move into tech or your next role with a focused strategy session.",
			Type:            models.ServiceVideoCall,
			PriceNGN:        1000000,
			DurationMinutes: minutes(45),
		},
		{
			Name:        "DevOps Fundamentals Course",
			Slug:        "devops-fundamentals",
			Description: "Self-paced course covering Linux, containers, CI/CD and cloud basics.",
			Type:        models.ServiceSelfPaced,
			PriceNGN:    2500000,
		},
	}
	for i := range rows {
		rows[i].ID = ServiceID(rows[i].Slug)
		rows[i].IsActive = true
	}
	return rows
}

func seedDefaults(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return ensureDefaultServices(tx)
	})
}

func ensureDefaultServices(tx *gorm.DB) error {
	for _, row := range DefaultServices() {
		var count int64
		if err := tx.Model(&models.Service{}).Where("slug = ?", row.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		row := row
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
