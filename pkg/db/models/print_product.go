package models

import "time"

// PrintProduct is a catalog entry for a physical print format. The catalog
// is maintained externally; orders reference rows by key.
type PrintProduct struct {
	Key            string    `gorm:"column:key;primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder      int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
