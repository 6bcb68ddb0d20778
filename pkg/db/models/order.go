package models

import (
	"time"

	"github.com/memowindow/memowindow-backend/pkg/enums"
)

// Order is a single physical print order. Prices are minor currency units.
// The memory/product display columns are denormalized for the order history
// page and backfilled by the reconcile operation for legacy rows.
type Order struct {
	ID                 int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID             int64             `gorm:"column:user_id;not null;index"`
	MemoryID           int64             `gorm:"column:memory_id;not null"`
	ProductKey         string            `gorm:"column:product_key;not null"`
	Quantity           int               `gorm:"column:quantity;not null;default:1"`
	UnitPriceCents     int               `gorm:"column:unit_price_cents;not null;default:0"`
	TotalPriceCents    int               `gorm:"column:total_price_cents;not null;default:0"`
	AmountPaidCents    int               `gorm:"column:amount_paid_cents;not null;default:0"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentSessionID   *string           `gorm:"column:payment_session_id;index"`
	FulfillmentOrderID *string           `gorm:"column:fulfillment_order_id;index"`
	ShippingAddress    *string           `gorm:"column:shipping_address"`
	TrackingNumber     *string           `gorm:"column:tracking_number"`
	MemoryTitle        *string           `gorm:"column:memory_title"`
	MemoryImageURL     *string           `gorm:"column:memory_image_url"`
	ProductName        *string           `gorm:"column:product_name"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
