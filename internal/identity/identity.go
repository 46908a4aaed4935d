package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrDuplicateLoginKey is returned when an identity with the same email
	// already exists in the provider. Concurrent first-time upserts of the
	// same employee surface this; callers treat it as a retryable conflict.
	ErrDuplicateLoginKey = errors.New("login key already in use")
	// ErrNotFound is returned when the referenced identity does not exist.
	ErrNotFound = errors.New("identity not found")
)

// Claims is the authorization metadata attached to an identity. Downstream
// services authorize against these claims, not against the ledger, so they
// must always reflect the employee's latest role and code.
type Claims struct {
	Role string `json:"role"`
	Code string `json:"employee_code"`
	Name string `json:"display_name"`
}

// Identity is an account held by the external identity provider. The provider
// carries no reference back to the employee ledger; correspondence is inferred
// by the resolver unless the employee row stores a trusted id.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Claims    Claims    `json:"claims"`
	CreatedAt time.Time `json:"created_at"`
}

// Patch carries partial identity updates. Nil fields are left untouched.
// Password is write-only; the provider never returns credentials.
type Patch struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Claims   *Claims `json:"claims,omitempty"`
}

// Provider is the narrow surface consumed from the identity provider.
type Provider interface {
	// List returns one page of identities. Pages are 1-based; a page shorter
	// than pageSize marks the end of the population.
	List(ctx context.Context, page, pageSize int) ([]Identity, error)
	Create(ctx context.Context, email, password string, claims Claims) (*Identity, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

// ListAll pages through the complete identity population. The provider
// paginates; stopping at the first page would silently miss identities, so
// every consumer that needs the full population goes through here.
func ListAll(ctx context.Context, p Provider, pageSize int) ([]Identity, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	var all []Identity
	for page := 1; ; page++ {
		batch, err := p.List(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}
	}
}

// NormalizeKey trims and case-folds a login key or business code for
// comparison. Human-entered codes and machine-issued emails accumulate
// whitespace and case drift over time.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoginKey derives the provider login email for a business code.
func LoginKey(code, suffix string) string {
	return NormalizeKey(code) + "@" + strings.TrimPrefix(strings.TrimSpace(suffix), "@")
}
