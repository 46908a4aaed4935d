package models

import (
	"time"
)

// Employee is a ledger master-data record for a staff member.
// Code is the human-assigned business key. IdentityID links the record to its
// account in the external identity provider; the link is maintained by the
// reconciliation service, not by a database constraint, because the two stores
// are independent.
type Employee struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	UUID string `json:"uuid" gorm:"uniqueIndex"`
	Code string `json:"code" gorm:"uniqueIndex;not null"`
	Name string `json:"name"`
	Role string `json:"role" gorm:"default:'staff'"` // "admin", "manager", "staff"

	AreaID    *uint `json:"area_id,omitempty"`
	AddressID *uint `json:"address_id,omitempty"`

	// Account in the identity provider. Nullable: a failed identity creation
	// leaves the employee without a link until the next upsert re-resolves it.
	IdentityID *string `json:"identity_id,omitempty" gorm:"index"`

	// Version is compared-and-swapped on every update/delete.
	Version int `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
