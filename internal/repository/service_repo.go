package repository

import (
	"context"

	"gorm.io/gorm"

	"bookpay/internal/models"
)

// ServiceRepository reads the service catalog.
type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// ListActive returns active services ordered by price.
func (r *ServiceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("price_ngn ASC").Find(&services).Error
	return services, wrap("list services", err)
}

// FindByID returns a service by ID, active or not.
func (r *ServiceRepository) FindByID(ctx context.Context, id string) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&service).Error; err != nil {
		return nil, wrap("find service", err)
	}
	return &service, nil
}

// FindBySlug returns a service by slug.
func (r *ServiceRepository) FindBySlug(ctx context.Context, slug string) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&service).Error; err != nil {
		return nil, wrap("find service by slug", err)
	}
	return &service, nil
}
