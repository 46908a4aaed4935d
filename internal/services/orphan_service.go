package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/identity"
	"github.com/quartermaster/backend/internal/logger"
	"github.com/quartermaster/backend/internal/metrics"
	"github.com/quartermaster/backend/internal/models"
)

// OrphanCandidate is an identity with no surviving employee reference.
type OrphanCandidate struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	ClaimCode  string `json:"claim_code,omitempty"`
}

// OrphanReport summarizes one scan.
type OrphanReport struct {
	DryRun                  bool              `json:"dry_run"`
	TotalIdentities         int               `json:"total_identities"`
	TotalLinkedEmployees    int               `json:"total_linked_employees"`
	OrphanCandidates        []OrphanCandidate `json:"orphan_candidates"`
	Deleted                 []string          `json:"deleted"`
	SeveredAcknowledgements int               `json:"severed_acknowledgements"`
	Errors                  []string          `json:"errors"`
}

// OrphanScanner diffs the full identity population against the set of
// identity references held by employees and reclaims identities nothing
// points at anymore. Orphans accumulate from failed compensations and from
// employees deleted while the provider was unreachable.
type OrphanScanner struct {
	db       *gorm.DB
	provider identity.Provider
	pageSize int
	notifier *NotificationService
}

// NewOrphanScanner creates the scanner. notifier may be nil.
func NewOrphanScanner(db *gorm.DB, provider identity.Provider, pageSize int, notifier *NotificationService) *OrphanScanner {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &OrphanScanner{db: db, provider: provider, pageSize: pageSize, notifier: notifier}
}

// Scan classifies every identity without a surviving employee reference. In
// dry-run mode neither store is touched. In live mode each orphan's dangling
// device acknowledgements are severed first, then the identity is deleted.
// Severance failures are recorded but do not block the delete: a live
// credential nobody owns is judged worse than one stale back-reference.
// Per-identity failures are collected, never transactional.
func (s *OrphanScanner) Scan(ctx context.Context, dryRun bool) (*OrphanReport, error) {
	population, err := identity.ListAll(ctx, s.provider, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list identities: %v", ErrIdentityProvider, err)
	}

	var refs []string
	if err := s.db.Model(&models.Employee{}).
		Where("identity_id IS NOT NULL AND identity_id != ''").
		Pluck("identity_id", &refs).Error; err != nil {
		return nil, fmt.Errorf("collect identity references: %w", err)
	}
	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[ref] = struct{}{}
	}

	report := &OrphanReport{
		DryRun:               dryRun,
		TotalIdentities:      len(population),
		TotalLinkedEmployees: len(refs),
		OrphanCandidates:     []OrphanCandidate{},
		Deleted:              []string{},
		Errors:               []string{},
	}

	for _, id := range population {
		if _, ok := referenced[id.ID]; ok {
			continue
		}
		report.OrphanCandidates = append(report.OrphanCandidates, OrphanCandidate{
			IdentityID: id.ID,
			Email:      id.Email,
			ClaimCode:  id.Claims.Code,
		})
		if dryRun {
			continue
		}

		severed, err := s.severAcknowledgements(id.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("sever acknowledgements for %s: %v", id.ID, err))
		}
		report.SeveredAcknowledgements += severed

		if err := s.provider.Delete(ctx, id.ID); err != nil && !errors.Is(err, identity.ErrNotFound) {
			report.Errors = append(report.Errors, fmt.Sprintf("delete identity %s: %v", id.ID, err))
			continue
		}
		report.Deleted = append(report.Deleted, id.ID)
	}

	if !dryRun {
		metrics.AddOrphansDeleted(len(report.Deleted))
	}

	logger.WithFields(map[string]interface{}{
		"dry_run":    dryRun,
		"population": report.TotalIdentities,
		"linked":     report.TotalLinkedEmployees,
		"orphans":    len(report.OrphanCandidates),
		"deleted":    len(report.Deleted),
		"errors":     len(report.Errors),
	}).Info("Orphan scan finished")

	if s.notifier != nil && !dryRun && (len(report.Deleted) > 0 || len(report.Errors) > 0) {
		s.notifier.Send("Orphan identity scan",
			fmt.Sprintf("Scanned %d identities: deleted %d orphans, %d errors",
				report.TotalIdentities, len(report.Deleted), len(report.Errors)))
	}

	return report, nil
}

// severAcknowledgements nulls out device receipt confirmations that point at
// the identity about to be deleted.
func (s *OrphanScanner) severAcknowledgements(identityID string) (int, error) {
	res := s.db.Model(&models.Device{}).
		Where("acknowledged_by = ?", identityID).
		Update("acknowledged_by", nil)
	return int(res.RowsAffected), res.Error
}
