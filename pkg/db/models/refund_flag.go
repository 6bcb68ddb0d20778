package models

import "time"

// RefundFlag records that a refund is owed against an external payment
// session. Cancelling a paid order writes one of these in the same
// transaction that removes the order row; executing the refund is the
// payment processor integration's job, not ours.
type RefundFlag struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID          int64     `gorm:"column:order_id;not null;index"`
	UserID           int64     `gorm:"column:user_id;not null"`
	PaymentSessionID string    `gorm:"column:payment_session_id;not null"`
	AmountCents      int       `gorm:"column:amount_cents;not null"`
	Reason           string    `gorm:"column:reason"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the historical table name.
func (RefundFlag) TableName() string {
	return "order_refund_flags"
}
