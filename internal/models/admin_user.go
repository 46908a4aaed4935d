package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AdminUser is a console operator of the ledger. Admin accounts are local to
// this application and unrelated to the employee accounts held by the external
// identity provider.
type AdminUser struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	UUID  string `json:"uuid" gorm:"uniqueIndex"`
	Email string `json:"email" gorm:"uniqueIndex;not null"`
	Name  string `json:"name"`
	// Code is the admin's own employee code, recorded on audit rows they cause.
	Code         string `json:"code" gorm:"index"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"default:'operator'"` // "admin", "operator"
	Enabled      bool   `json:"enabled" gorm:"default:true"`

	FailedLoginAttempts int        `json:"-" gorm:"default:0"`
	LockedUntil         *time.Time `json:"-"`
	LastLogin           *time.Time `json:"last_login,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPassword hashes and sets the admin's password.
func (u *AdminUser) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the provided password with the stored hash.
func (u *AdminUser) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
