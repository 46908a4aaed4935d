package services

import (
	"context"
	"fmt"

	"github.com/quartermaster/backend/internal/identity"
	"github.com/quartermaster/backend/internal/models"
)

// MatchEvidence names the resolution rule that linked an employee to an
// identity.
type MatchEvidence string

const (
	// EvidenceByReference means the employee row already carried a trusted
	// identity id.
	EvidenceByReference MatchEvidence = "by-reference"
	// EvidenceByLoginKey means an identity's login email equals the login key
	// derived from the employee code.
	EvidenceByLoginKey MatchEvidence = "by-login-key"
	// EvidenceByClaimCode means an identity's employee_code claim equals the
	// employee code.
	EvidenceByClaimCode MatchEvidence = "by-claim-code"
	// EvidenceNone means no identity corresponds to the employee.
	EvidenceNone MatchEvidence = "none"
)

// Resolution is the outcome of matching one employee against the identity
// population. Matches holds every identity the winning rule accepted; more
// than one entry means the correspondence is ambiguous.
type Resolution struct {
	IdentityID string
	Evidence   MatchEvidence
	Matches    []identity.Identity
}

// IdentityResolver decides whether an employee already has an account in the
// identity provider, and by what evidence. The ranked rule list lives here and
// nowhere else, so the matching policy stays a single reviewable unit.
type IdentityResolver struct {
	provider identity.Provider
	suffix   string
	pageSize int
}

// NewIdentityResolver creates a resolver for the given provider. suffix is
// the fixed login-key domain appended to employee codes.
func NewIdentityResolver(provider identity.Provider, suffix string, pageSize int) *IdentityResolver {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &IdentityResolver{provider: provider, suffix: suffix, pageSize: pageSize}
}

// LoginKeyFor derives the provider login email for an employee code.
func (r *IdentityResolver) LoginKeyFor(code string) string {
	return identity.LoginKey(code, r.suffix)
}

// Resolve matches the employee candidate against the identity population.
// Rules run in order, first match wins:
//
//  1. trusted identity reference on the employee row
//  2. login key derived from the business code, normalized
//  3. employee_code claim, normalized
//
// A rule that matches more than one identity returns ErrAmbiguousIdentity with
// all candidates attached; the resolver never silently picks one. No match at
// all returns EvidenceNone and a nil error: the caller creates a fresh
// identity.
func (r *IdentityResolver) Resolve(ctx context.Context, emp *models.Employee) (*Resolution, error) {
	if emp.IdentityID != nil && *emp.IdentityID != "" {
		return &Resolution{IdentityID: *emp.IdentityID, Evidence: EvidenceByReference}, nil
	}

	// Rules 2 and 3 need the full population; the provider paginates and a
	// first-page-only scan would miss matches.
	population, err := identity.ListAll(ctx, r.provider, r.pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list identities: %v", ErrIdentityProvider, err)
	}

	code := identity.NormalizeKey(emp.Code)
	loginKey := r.LoginKeyFor(emp.Code)

	if res, err := matchRule(population, EvidenceByLoginKey, func(id identity.Identity) bool {
		return identity.NormalizeKey(id.Email) == loginKey
	}); res != nil || err != nil {
		return res, err
	}

	if res, err := matchRule(population, EvidenceByClaimCode, func(id identity.Identity) bool {
		return identity.NormalizeKey(id.Claims.Code) == code
	}); res != nil || err != nil {
		return res, err
	}

	return &Resolution{Evidence: EvidenceNone}, nil
}

func matchRule(population []identity.Identity, evidence MatchEvidence, match func(identity.Identity) bool) (*Resolution, error) {
	var matches []identity.Identity
	for _, id := range population {
		if match(id) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &Resolution{IdentityID: matches[0].ID, Evidence: evidence, Matches: matches}, nil
	default:
		return &Resolution{Evidence: evidence, Matches: matches}, fmt.Errorf("%w: %d identities matched rule %q", ErrAmbiguousIdentity, len(matches), evidence)
	}
}
