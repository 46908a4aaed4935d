package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/models"
)

func createTestAdmin(t *testing.T, db *gorm.DB, email, password string) *models.AdminUser {
	admin := &models.AdminUser{
		UUID:    "test-" + email,
		Email:   email,
		Name:    "Test Admin",
		Code:    "ADM-T",
		Role:    "admin",
		Enabled: true,
	}
	assert.NoError(t, admin.SetPassword(password))
	assert.NoError(t, db.Create(admin).Error)
	return admin
}

func TestAuthService_Login(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	createTestAdmin(t, db, "admin@example.test", "correct-horse")

	t.Run("valid credentials return a token", func(t *testing.T) {
		token, err := svc.Login("admin@example.test", "correct-horse")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.Login("admin@example.test", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email gets the same error as wrong password", func(t *testing.T) {
		_, err := svc.Login("nobody@example.test", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account cannot log in", func(t *testing.T) {
		admin := createTestAdmin(t, db, "disabled@example.test", "pw-123456")
		db.Model(admin).Update("enabled", false)

		_, err := svc.Login("disabled@example.test", "pw-123456")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Lockout(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	admin := createTestAdmin(t, db, "locky@example.test", "right-pw")

	t.Run("repeated failures lock the account", func(t *testing.T) {
		for i := 0; i < maxFailedLogins; i++ {
			_, err := svc.Login("locky@example.test", "wrong")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		}

		// Even the correct password is refused while locked.
		_, err := svc.Login("locky@example.test", "right-pw")
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("lockout expires", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		db.Model(admin).Update("locked_until", past)

		token, err := svc.Login("locky@example.test", "right-pw")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("successful login resets the failure counter", func(t *testing.T) {
		var got models.AdminUser
		assert.NoError(t, db.First(&got, admin.ID).Error)
		assert.Zero(t, got.FailedLoginAttempts)
		assert.Nil(t, got.LockedUntil)
		assert.NotNil(t, got.LastLogin)
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	admin := createTestAdmin(t, db, "claims@example.test", "pw-123456")

	token, err := svc.Login("claims@example.test", "pw-123456")
	assert.NoError(t, err)

	t.Run("token carries the actor fields", func(t *testing.T) {
		claims, err := svc.ValidateToken(token)
		assert.NoError(t, err)
		assert.Equal(t, admin.ID, claims.UserID)
		assert.Equal(t, admin.Email, claims.Email)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, admin.Name, claims.ActorName)
		assert.Equal(t, admin.Code, claims.ActorCode)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewAuthService(db, "other-secret")
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}
