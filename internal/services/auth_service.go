package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/models"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
	tokenLifetime   = 24 * time.Hour
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and disabled
	// accounts alike, so login responses never leak which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked means too many failed attempts in a row.
	ErrAccountLocked = errors.New("account temporarily locked")
)

// TokenClaims is the JWT payload for console sessions. ActorName/ActorCode
// travel with the token so audit attribution never needs a second lookup.
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ActorName string `json:"actor_name"`
	ActorCode string `json:"actor_code"`
	jwt.RegisteredClaims
}

// AuthService authenticates console admins and issues JWT session tokens.
// Admin accounts are local rows, unrelated to the employee accounts in the
// external identity provider.
type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
}

// NewAuthService creates the service with the signing secret from config.
func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{db: db, jwtSecret: []byte(jwtSecret)}
}

// Login verifies credentials and returns a signed session token.
func (s *AuthService) Login(email, password string) (string, error) {
	var user models.AdminUser
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up admin: %w", err)
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		return "", ErrAccountLocked
	}

	if !user.Enabled || !user.CheckPassword(password) {
		s.recordFailedAttempt(&user)
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	s.db.Model(&user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login":            now,
	})

	return s.issueToken(&user, now)
}

func (s *AuthService) recordFailedAttempt(user *models.AdminUser) {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]interface{}{"failed_login_attempts": attempts}
	if attempts >= maxFailedLogins {
		updates["locked_until"] = time.Now().Add(lockoutDuration)
		updates["failed_login_attempts"] = 0
	}
	s.db.Model(user).Updates(updates)
}

func (s *AuthService) issueToken(user *models.AdminUser, now time.Time) (string, error) {
	claims := TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ActorName: user.Name,
		ActorCode: user.Code,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetAdminByID loads one admin account.
func (s *AuthService) GetAdminByID(id uint) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}
