package models

import "time"

// Service types offered in the catalog.
const (
	ServiceVideoCall = "video_call"
	ServiceAsync     = "async"
	ServiceSelfPaced = "self_paced"
)

// Service maps to the `services` table. PriceNGN is in kobo.
type Service struct {
	ID              string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name            string    `gorm:"column:name;size:200" json:"name"`
	Slug            string    `gorm:"column:slug;size:100;uniqueIndex" json:"slug"`
	Description     string    `gorm:"column:description;type:text" json:"description"`
	Type            string    `gorm:"column:type;size:20" json:"type"`
	PriceNGN        int64     `gorm:"column:price_ngn" json:"price_ngn"`
	DurationMinutes *int      `gorm:"column:duration_minutes" json:"duration_minutes"`
	IsActive        bool      `gorm:"column:is_active;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}
