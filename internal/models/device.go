package models

import (
	"time"
)

// Device is a versioned ledger record for an issued piece of hardware.
// AcknowledgedBy stores the identity-provider id of whoever confirmed receipt.
// It is a dangling reference: the identity may be deleted independently, in
// which case the orphan scanner nulls the field out.
type Device struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	UUID         string `json:"uuid" gorm:"uniqueIndex"`
	AssetTag     string `json:"asset_tag" gorm:"uniqueIndex;not null"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Status       string `json:"status" gorm:"default:'in_stock'"` // "in_stock", "issued", "retired"

	AssignedEmployeeID *uint   `json:"assigned_employee_id,omitempty"`
	AcknowledgedBy     *string `json:"acknowledged_by,omitempty" gorm:"index"`

	Version   int       `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
