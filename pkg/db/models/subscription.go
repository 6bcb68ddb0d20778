package models

import (
	"time"

	"github.com/memowindow/memowindow-backend/pkg/enums"
)

// Subscription persists the billing provider's subscription state per user.
// The unique index on user_id enforces the one-active-row-per-user rule;
// writes go through an upsert keyed on that column.
type Subscription struct {
	ID                   int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID               int64                    `gorm:"column:user_id;not null;uniqueIndex:uq_user_subscriptions_user_id"`
	PackageID            int64                    `gorm:"column:package_id;not null"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;index"`
	StripeCustomerID     string                   `gorm:"column:stripe_customer_id"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:text;not null;default:'active'"`
	AmountCents          int                      `gorm:"column:amount_cents;not null;default:0"`
	BillingCycle         enums.BillingCycle       `gorm:"column:billing_cycle;type:text;not null;default:'monthly'"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the historical table name.
func (Subscription) TableName() string {
	return "user_subscriptions"
}
