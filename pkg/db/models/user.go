package models

import "time"

// User mirrors the account table owned by the external auth provider. This
// service reads it for the admin flag only.
type User struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email       string    `gorm:"column:email;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name"`
	IsAdmin     bool      `gorm:"column:is_admin;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
