package memories

import (
	"context"

	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads the wave-asset store. The table is owned by the upload
// pipeline; this service never writes it.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*models.WaveAsset, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a memories repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.WaveAsset, error) {
	var asset models.WaveAsset
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *repository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WaveAsset{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
