package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/identity"
	"github.com/quartermaster/backend/internal/logger"
	"github.com/quartermaster/backend/internal/metrics"
	"github.com/quartermaster/backend/internal/models"
)

// IdentityAction reports what the upsert did on the identity-provider side.
type IdentityAction string

const (
	// IdentityCreated means a fresh identity was minted for the employee.
	IdentityCreated IdentityAction = "created"
	// IdentityReused means an existing identity matched and already carried
	// the latest claims.
	IdentityReused IdentityAction = "reused"
	// IdentityUpdated means an existing identity matched and its claims or
	// login key were pushed up to date.
	IdentityUpdated IdentityAction = "updated"
)

// UpsertFields is the input to an employee upsert. Version is optional: when
// set, the domain row is updated through the version guard; when nil, an
// existing row keeps its fields and version and only the identity side is
// refreshed (a missing identity link is still repaired, with an audit row).
type UpsertFields struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Role      string `json:"role"`
	AreaID    *uint  `json:"area_id"`
	AddressID *uint  `json:"address_id"`
	Password  string `json:"password"`
	Version   *int   `json:"version"`
}

// UpsertResult is the outcome of one employee upsert.
type UpsertResult struct {
	Employee       *models.Employee `json:"employee"`
	IdentityID     string           `json:"identity_id"`
	IdentityAction IdentityAction   `json:"identity_action"`
}

// BatchUpsertEntry pairs one batch input with its individual outcome.
type BatchUpsertEntry struct {
	Code   string        `json:"code"`
	Result *UpsertResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ReconcileService keeps the employee ledger and the identity provider
// consistent with each other. There are no cross-store transactions: the
// service orders writes so that a partial failure either leaves the stores
// re-reconcilable by business code, or is compensated before returning.
type ReconcileService struct {
	db              *gorm.DB
	guard           *VersionGuard
	resolver        *IdentityResolver
	provider        identity.Provider
	audit           *AuditService
	defaultPassword string
}

// NewReconcileService wires the engine with its collaborators.
func NewReconcileService(db *gorm.DB, guard *VersionGuard, resolver *IdentityResolver, provider identity.Provider, audit *AuditService, defaultPassword string) *ReconcileService {
	return &ReconcileService{
		db:              db,
		guard:           guard,
		resolver:        resolver,
		provider:        provider,
		audit:           audit,
		defaultPassword: defaultPassword,
	}
}

// Upsert creates or refreshes one employee and its identity-provider account.
//
// Order of operations:
//
//  1. look up the domain row by business code
//  2. resolve the identity correspondence
//  3. create the identity if none matched, otherwise push the latest
//     claims/login key onto the match (stale claims are a security defect:
//     downstream authorization reads claims, not this ledger)
//  4. write the domain row (insert, or guarded update when a version was
//     supplied)
//  5. if step 4 fails and step 3 minted a fresh identity, delete it again
//     before returning the error
//  6. on success, re-attribute the audit row to the actor, fire-and-continue
func (s *ReconcileService) Upsert(ctx context.Context, fields UpsertFields, actor Actor) (*UpsertResult, error) {
	code := strings.TrimSpace(fields.Code)
	if code == "" {
		return nil, fmt.Errorf("employee code is required")
	}
	if fields.Role == "" {
		fields.Role = "staff"
	}

	var existing models.Employee
	found := true
	if err := s.db.Where("code = ?", code).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("look up employee %s: %w", code, err)
		}
		found = false
	}

	candidate := existing
	if !found {
		candidate = models.Employee{Code: code}
	}

	resolution, err := s.resolver.Resolve(ctx, &candidate)
	if err != nil {
		return nil, err
	}

	claims := identity.Claims{Role: fields.Role, Code: code, Name: fields.Name}
	loginKey := s.resolver.LoginKeyFor(code)

	identityID := resolution.IdentityID
	action := IdentityReused
	if resolution.Evidence == EvidenceNone {
		password := fields.Password
		if password == "" {
			password = s.defaultPassword
		}
		created, err := s.provider.Create(ctx, loginKey, password, claims)
		if err != nil {
			if errors.Is(err, identity.ErrDuplicateLoginKey) {
				// Lost a first-time-creation race: another call minted the
				// identity between our resolution and create. Recoverable by
				// retry, which will resolve the winner's identity.
				return nil, fmt.Errorf("%w: login key %s", ErrDuplicateCode, loginKey)
			}
			return nil, fmt.Errorf("%w: create identity: %v", ErrIdentityProvider, err)
		}
		identityID = created.ID
		action = IdentityCreated
	} else {
		updated, err := s.pushIdentity(ctx, identityID, loginKey, claims, fields.Password, resolution)
		if err != nil {
			return nil, err
		}
		if updated {
			action = IdentityUpdated
		}
	}

	relinked := found && fields.Version == nil &&
		(existing.IdentityID == nil || *existing.IdentityID != identityID)

	employee, err := s.writeDomain(fields, code, identityID, &existing, found)
	if err != nil {
		if action == IdentityCreated {
			s.compensateIdentity(ctx, identityID, loginKey)
		}
		if errors.Is(err, ErrConcurrencyConflict) {
			metrics.IncConcurrencyConflict()
		}
		return nil, err
	}

	metrics.IncUpsert(string(action))

	// Attribution is best-effort: a missing audit row must never fail the
	// upsert that triggered it.
	operation := models.AuditOpUpdate
	if !found {
		operation = models.AuditOpInsert
	}
	if found && fields.Version == nil && !relinked {
		operation = "" // domain row untouched, nothing to attribute
	}
	if operation != "" {
		if err := s.audit.PatchActor(employee.ID, "employees", actor, operation); err != nil {
			logger.WithFields(map[string]interface{}{"code": code}).WithError(err).Warn("Audit attribution failed after upsert")
		}
	}

	return &UpsertResult{Employee: employee, IdentityID: identityID, IdentityAction: action}, nil
}

// pushIdentity brings a matched identity up to date and reports whether
// anything changed.
func (s *ReconcileService) pushIdentity(ctx context.Context, identityID, loginKey string, claims identity.Claims, password string, resolution *Resolution) (bool, error) {
	patch := identity.Patch{}
	if password != "" {
		patch.Password = &password
	}
	patch.Claims = &claims

	// When the match came from the population scan we know the current state
	// and can skip a no-op update. A by-reference match skips the scan, so we
	// always push there.
	if len(resolution.Matches) == 1 {
		current := resolution.Matches[0]
		if identity.NormalizeKey(current.Email) == loginKey && current.Claims == claims && password == "" {
			return false, nil
		}
	}
	if resolution.Evidence != EvidenceByLoginKey {
		patch.Email = &loginKey
	}

	if err := s.provider.Update(ctx, identityID, patch); err != nil {
		if errors.Is(err, identity.ErrDuplicateLoginKey) {
			return false, fmt.Errorf("%w: login key %s", ErrDuplicateCode, loginKey)
		}
		if errors.Is(err, identity.ErrNotFound) {
			return false, fmt.Errorf("%w: identity %s", ErrRecordNotFound, identityID)
		}
		return false, fmt.Errorf("%w: update identity: %v", ErrIdentityProvider, err)
	}
	return true, nil
}

// writeDomain inserts or conditionally updates the employee row.
func (s *ReconcileService) writeDomain(fields UpsertFields, code, identityID string, existing *models.Employee, found bool) (*models.Employee, error) {
	if !found {
		employee := models.Employee{
			UUID:       uuid.NewString(),
			Code:       code,
			Name:       fields.Name,
			Role:       fields.Role,
			AreaID:     fields.AreaID,
			AddressID:  fields.AddressID,
			IdentityID: &identityID,
			Version:    1,
		}
		if err := s.db.Create(&employee).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
			}
			return nil, fmt.Errorf("insert employee %s: %w", code, err)
		}
		s.audit.Record("employees", models.AuditOpInsert, nil, &employee)
		return &employee, nil
	}

	if fields.Version == nil {
		// Re-link even though the other fields are left alone, so a previously
		// failed identity creation heals on the next upsert. The link change is
		// a domain mutation like any other and gets its own audit row.
		if existing.IdentityID == nil || *existing.IdentityID != identityID {
			before := *existing
			if err := s.db.Model(&models.Employee{}).Where("id = ?", existing.ID).Update("identity_id", identityID).Error; err != nil {
				return nil, fmt.Errorf("link employee %s to identity: %w", code, err)
			}
			existing.IdentityID = &identityID
			s.audit.Record("employees", models.AuditOpUpdate, &before, existing)
		}
		return existing, nil
	}

	before := *existing
	patch := map[string]interface{}{
		"name":        fields.Name,
		"role":        fields.Role,
		"area_id":     fields.AreaID,
		"address_id":  fields.AddressID,
		"identity_id": identityID,
	}
	if err := s.guard.UpdateIfVersionMatches(&models.Employee{}, existing.ID, *fields.Version, patch); err != nil {
		return nil, err
	}

	var updated models.Employee
	if err := s.db.First(&updated, existing.ID).Error; err != nil {
		return nil, fmt.Errorf("reload employee %s: %w", code, err)
	}
	s.audit.Record("employees", models.AuditOpUpdate, &before, &updated)
	return &updated, nil
}

// compensateIdentity deletes an identity that was minted earlier in the same
// call. Best-effort: a failure here is logged and the original error is still
// what the caller sees; the orphan scanner picks up anything left behind.
func (s *ReconcileService) compensateIdentity(ctx context.Context, identityID, loginKey string) {
	metrics.IncCompensation()
	if err := s.provider.Delete(ctx, identityID); err != nil && !errors.Is(err, identity.ErrNotFound) {
		metrics.IncCompensationFailure()
		logger.WithFields(map[string]interface{}{
			"identity_id": identityID,
			"login_key":   loginKey,
		}).WithError(err).Error("Compensating identity delete failed; orphan scanner will reclaim it")
	}
}

// BatchUpsert processes entries one at a time. Sequential on purpose: it
// bounds identity-provider rate-limit exposure and keeps compensation scoped
// to a single entry. One entry's failure never aborts the rest.
func (s *ReconcileService) BatchUpsert(ctx context.Context, entries []UpsertFields, actor Actor) []BatchUpsertEntry {
	results := make([]BatchUpsertEntry, 0, len(entries))
	for _, fields := range entries {
		entry := BatchUpsertEntry{Code: strings.TrimSpace(fields.Code)}
		result, err := s.Upsert(ctx, fields, actor)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Result = result
		}
		results = append(results, entry)
	}
	return results
}

// Delete removes an employee and its identity-provider account. The identity
// goes first: a ledger row without an account is re-reconcilable, an account
// without a ledger row is an orphaned credential. When the row carries no
// identity reference (an earlier upsert failed mid-way), the resolver's
// heuristic rules hunt down the stray identity before the domain delete.
func (s *ReconcileService) Delete(ctx context.Context, id uint, expectedVersion int, actor Actor) error {
	var employee models.Employee
	if err := s.db.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("load employee %d: %w", id, err)
	}

	resolution, err := s.resolver.Resolve(ctx, &employee)
	if err != nil && !errors.Is(err, ErrAmbiguousIdentity) {
		return err
	}
	if err == nil && resolution.Evidence != EvidenceNone {
		if err := s.provider.Delete(ctx, resolution.IdentityID); err != nil && !errors.Is(err, identity.ErrNotFound) {
			return fmt.Errorf("%w: delete identity %s: %v", ErrIdentityProvider, resolution.IdentityID, err)
		}
	}
	// An ambiguous match is deliberately left alone: deleting one of several
	// candidate identities could take down an account that belongs to someone
	// else. The orphan scanner reclaims whichever one ends up unreferenced.

	if err := s.guard.DeleteIfVersionMatches(&models.Employee{}, id, expectedVersion); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			metrics.IncConcurrencyConflict()
		}
		return err
	}
	s.audit.Record("employees", models.AuditOpDelete, &employee, nil)

	if err := s.audit.PatchActor(employee.ID, "employees", actor, models.AuditOpDelete); err != nil {
		logger.WithFields(map[string]interface{}{"code": employee.Code}).WithError(err).Warn("Audit attribution failed after delete")
	}
	return nil
}

// DeleteBatch removes employees one at a time in order. The first failure
// stops the batch; earlier deletes stay committed and are reported back.
func (s *ReconcileService) DeleteBatch(ctx context.Context, refs []VersionedRef, actor Actor) ([]uint, error) {
	deleted := make([]uint, 0, len(refs))
	for _, ref := range refs {
		if err := s.Delete(ctx, ref.ID, ref.Version, actor); err != nil {
			return deleted, fmt.Errorf("delete employee %d: %w", ref.ID, err)
		}
		deleted = append(deleted, ref.ID)
	}
	return deleted, nil
}

// isUniqueViolation detects a unique-constraint failure across the drivers
// gorm may sit on.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}
