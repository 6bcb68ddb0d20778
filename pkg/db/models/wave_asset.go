package models

import "time"

// WaveAsset is a user memory: uploaded audio plus its rendered waveform
// image. The table is owned by the upload pipeline; this service only reads
// it for display lookups and entitlement counting.
type WaveAsset struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          int64     `gorm:"column:user_id;not null;index"`
	Title           string    `gorm:"column:title"`
	ImageURL        string    `gorm:"column:image_url"`
	AudioURL        string    `gorm:"column:audio_url"`
	DurationSeconds int       `gorm:"column:duration_seconds;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
