package subscriptions

import (
	"context"
	"testing"

	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	"github.com/memowindow/memowindow-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSubsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	packages := `
CREATE TABLE IF NOT EXISTS subscription_packages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  monthly_price_cents INTEGER NOT NULL DEFAULT 0,
  yearly_price_cents INTEGER NOT NULL DEFAULT 0,
  features TEXT,
  memory_limit INTEGER NOT NULL DEFAULT 0,
  voice_clone_limit INTEGER NOT NULL DEFAULT 0,
  max_audio_seconds INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	subscriptions := `
CREATE TABLE IF NOT EXISTS user_subscriptions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL UNIQUE,
  package_id INTEGER NOT NULL,
  stripe_subscription_id TEXT,
  stripe_customer_id TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  amount_cents INTEGER NOT NULL DEFAULT 0,
  billing_cycle TEXT NOT NULL DEFAULT 'monthly',
  current_period_start DATETIME,
  current_period_end DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(packages).Error)
	require.NoError(t, db.Exec(subscriptions).Error)
	return db
}

func seedPackage(t *testing.T, db *gorm.DB, pkg *models.SubscriptionPackage) *models.SubscriptionPackage {
	t.Helper()
	require.NoError(t, db.Create(pkg).Error)
	return pkg
}

func TestRepoUpsertKeepsOneRowPerUser(t *testing.T) {
	db := setupSubsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Subscription{
		UserID:               7,
		PackageID:            2,
		StripeSubscriptionID: "sub_1",
		Status:               enums.SubscriptionStatusActive,
		BillingCycle:         enums.BillingCycleMonthly,
		AmountCents:          999,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.Subscription{
		UserID:               7,
		PackageID:            3,
		StripeSubscriptionID: "sub_2",
		Status:               enums.SubscriptionStatusActive,
		BillingCycle:         enums.BillingCycleYearly,
		AmountCents:          9990,
	}))

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	sub, err := repo.FindByUser(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, sub.PackageID)
	assert.Equal(t, "sub_2", sub.StripeSubscriptionID)
	assert.Equal(t, enums.BillingCycleYearly, sub.BillingCycle)
}

func TestRepoUpdateStatusOnlyTouchesEntitlingRows(t *testing.T) {
	db := setupSubsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Subscription{
		UserID: 7, PackageID: 2, Status: enums.SubscriptionStatusActive,
		BillingCycle: enums.BillingCycleMonthly,
	}))

	affected, err := repo.UpdateStatus(ctx, 7, enums.SubscriptionStatusCancelled)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.UpdateStatus(ctx, 7, enums.SubscriptionStatusCancelled)
	require.NoError(t, err)
	assert.Zero(t, affected)

	sub, err := repo.FindByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCancelled, sub.Status)
}

func TestRepoUpdateStatusByStripeID(t *testing.T) {
	db := setupSubsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Subscription{
		UserID: 7, PackageID: 2, StripeSubscriptionID: "sub_1",
		Status: enums.SubscriptionStatusActive, BillingCycle: enums.BillingCycleMonthly,
	}))

	affected, err := repo.UpdateStatusByStripeID(ctx, "sub_1", enums.SubscriptionStatusPastDue)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	sub, err := repo.FindByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusPastDue, sub.Status)

	affected, err = repo.UpdateStatusByStripeID(ctx, "sub_ghost", enums.SubscriptionStatusActive)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestRepoUpdateStatusByStripeIDSkipsCancelledRows(t *testing.T) {
	db := setupSubsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Subscription{
		UserID: 7, PackageID: 2, StripeSubscriptionID: "sub_1",
		Status: enums.SubscriptionStatusCancelled, BillingCycle: enums.BillingCycleMonthly,
	}))

	affected, err := repo.UpdateStatusByStripeID(ctx, "sub_1", enums.SubscriptionStatusActive)
	require.NoError(t, err)
	assert.Zero(t, affected)

	sub, err := repo.FindByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCancelled, sub.Status)
}

func TestRepoPackagesRoundTripFeatures(t *testing.T) {
	db := setupSubsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedPackage(t, db, &models.SubscriptionPackage{
		Name: "Family", Slug: "family",
		Features: types.FeatureSet{
			enums.CapabilityQRCodes:    true,
			enums.CapabilityVoiceClone: false,
		},
		MemoryLimit: 50, IsActive: true, SortOrder: 20,
	})
	seedPackage(t, db, &models.SubscriptionPackage{
		Name: "Starter", Slug: "starter", MemoryLimit: 10, IsActive: true, SortOrder: 10,
	})
	seedPackage(t, db, &models.SubscriptionPackage{
		Name: "Retired", Slug: "retired", IsActive: false, SortOrder: 5,
	})

	packageList, err := repo.ListActivePackages(ctx)
	require.NoError(t, err)
	require.Len(t, packageList, 2)
	assert.Equal(t, "starter", packageList[0].Slug)
	assert.Equal(t, "family", packageList[1].Slug)

	pkg, err := repo.FindPackageBySlug(ctx, "family")
	require.NoError(t, err)
	assert.True(t, pkg.Features.Has(enums.CapabilityQRCodes))
	assert.False(t, pkg.Features.Has(enums.CapabilityVoiceClone))

	_, err = repo.FindPackageBySlug(ctx, "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
