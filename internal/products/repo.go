package products

import (
	"context"

	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads the externally-maintained print product catalog.
type Repository interface {
	FindByKey(ctx context.Context, key string) (*models.PrintProduct, error)
	ListActive(ctx context.Context) ([]models.PrintProduct, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByKey(ctx context.Context, key string) (*models.PrintProduct, error) {
	var product models.PrintProduct
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.PrintProduct, error) {
	var productList []models.PrintProduct
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&productList).Error
	if err != nil {
		return nil, err
	}
	return productList, nil
}
