package models

import (
	"time"

	"github.com/memowindow/memowindow-backend/pkg/types"
)

// SubscriptionPackage is a purchasable tier with its capability limits.
// Features persists as JSON and decodes once into the typed capability map.
type SubscriptionPackage struct {
	ID                int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Name              string           `gorm:"column:name;not null"`
	Slug              string           `gorm:"column:slug;not null;uniqueIndex"`
	MonthlyPriceCents int              `gorm:"column:monthly_price_cents;not null;default:0"`
	YearlyPriceCents  int              `gorm:"column:yearly_price_cents;not null;default:0"`
	Features          types.FeatureSet `gorm:"column:features;type:jsonb;serializer:json"`
	MemoryLimit       int              `gorm:"column:memory_limit;not null;default:0"`
	VoiceCloneLimit   int              `gorm:"column:voice_clone_limit;not null;default:0"`
	MaxAudioSeconds   int              `gorm:"column:max_audio_seconds;not null;default:0"`
	IsActive          bool             `gorm:"column:is_active;not null;default:true"`
	SortOrder         int              `gorm:"column:sort_order;not null;default:0"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
