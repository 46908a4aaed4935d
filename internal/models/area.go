package models

import (
	"time"
)

// Area is a versioned master-data record grouping employees by site or floor.
type Area struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UUID        string    `json:"uuid" gorm:"uniqueIndex"`
	Code        string    `json:"code" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name"`
	Description string    `json:"description" gorm:"type:text"`
	Version     int       `json:"version" gorm:"not null;default:1"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
