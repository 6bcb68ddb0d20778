package subscriptions

import (
	"context"

	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles subscription and package persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
	UpdateStatus(ctx context.Context, userID int64, status enums.SubscriptionStatus) (int64, error)
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status enums.SubscriptionStatus) (int64, error)
	ListActivePackages(ctx context.Context) ([]models.SubscriptionPackage, error)
	FindPackageBySlug(ctx context.Context, slug string) (*models.SubscriptionPackage, error)
	FindPackageByID(ctx context.Context, id int64) (*models.SubscriptionPackage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert inserts or replaces the user's single ledger row. The conflict
// target is the unique user_id index, so the last write wins.
func (r *repository) Upsert(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"package_id",
				"stripe_subscription_id",
				"stripe_customer_id",
				"status",
				"amount_cents",
				"billing_cycle",
				"current_period_start",
				"current_period_end",
				"updated_at",
			}),
		}).
		Create(sub).Error
}

func (r *repository) UpdateStatus(ctx context.Context, userID int64, status enums.SubscriptionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND status IN ?", userID, []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateStatusByStripeID flips the row's status by provider reference.
// cancelled is terminal, so only entitling rows match; a replayed invoice
// event cannot re-entitle a cancelled user.
func (r *repository) UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status enums.SubscriptionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("stripe_subscription_id = ? AND status IN ?", stripeSubscriptionID, []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) ListActivePackages(ctx context.Context) ([]models.SubscriptionPackage, error) {
	var packageList []models.SubscriptionPackage
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&packageList).Error
	if err != nil {
		return nil, err
	}
	return packageList, nil
}

func (r *repository) FindPackageBySlug(ctx context.Context, slug string) (*models.SubscriptionPackage, error) {
	var pkg models.SubscriptionPackage
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) FindPackageByID(ctx context.Context, id int64) (*models.SubscriptionPackage, error) {
	var pkg models.SubscriptionPackage
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
