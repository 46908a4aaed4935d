package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/logger"
	"github.com/quartermaster/backend/internal/metrics"
	"github.com/quartermaster/backend/internal/models"
)

// MasterDataService handles the versioned master-data entities that have no
// identity-provider side: areas, addresses and devices. Every mutation goes
// through the version guard, gets an audit row, and is re-attributed to the
// initiating admin.
type MasterDataService struct {
	db    *gorm.DB
	guard *VersionGuard
	audit *AuditService
}

// NewMasterDataService wires the service.
func NewMasterDataService(db *gorm.DB, guard *VersionGuard, audit *AuditService) *MasterDataService {
	return &MasterDataService{db: db, guard: guard, audit: audit}
}

// table maps a model to its audit table name.
func table(model interface{}) string {
	switch model.(type) {
	case *models.Area:
		return "areas"
	case *models.Address:
		return "addresses"
	case *models.Device:
		return "devices"
	default:
		return ""
	}
}

// Create inserts a fresh row at version 1. model must be a pointer to one of
// the master-data structs with its fields populated.
func (s *MasterDataService) Create(model interface{}, actor Actor) error {
	setUUID(model)
	if err := s.db.Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateCode, err)
		}
		return err
	}
	s.audit.Record(table(model), models.AuditOpInsert, nil, model)
	s.attribute(idOf(model), table(model), actor, models.AuditOpInsert)
	return nil
}

// Update applies patch through the version guard.
func (s *MasterDataService) Update(model interface{}, id uint, expectedVersion int, patch map[string]interface{}, actor Actor) error {
	before, err := s.load(model, id)
	if err != nil {
		return err
	}
	if err := s.guard.UpdateIfVersionMatches(model, id, expectedVersion, patch); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			metrics.IncConcurrencyConflict()
		}
		return err
	}
	after, err := s.load(model, id)
	if err != nil {
		return err
	}
	s.audit.Record(table(model), models.AuditOpUpdate, before, after)
	s.attribute(id, table(model), actor, models.AuditOpUpdate)
	return nil
}

// Delete removes the row through the version guard.
func (s *MasterDataService) Delete(model interface{}, id uint, expectedVersion int, actor Actor) error {
	before, err := s.load(model, id)
	if err != nil {
		return err
	}
	if err := s.guard.DeleteIfVersionMatches(model, id, expectedVersion); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			metrics.IncConcurrencyConflict()
		}
		return err
	}
	s.audit.Record(table(model), models.AuditOpDelete, before, nil)
	s.attribute(id, table(model), actor, models.AuditOpDelete)
	return nil
}

// DeleteBatch removes rows one conditional delete at a time; the first
// failure stops the batch, earlier deletes stay committed.
func (s *MasterDataService) DeleteBatch(model interface{}, refs []VersionedRef, actor Actor) ([]uint, error) {
	deleted := make([]uint, 0, len(refs))
	for _, ref := range refs {
		if err := s.Delete(model, ref.ID, ref.Version, actor); err != nil {
			return deleted, err
		}
		deleted = append(deleted, ref.ID)
	}
	return deleted, nil
}

// load fetches a detached copy of the row for audit payloads.
func (s *MasterDataService) load(model interface{}, id uint) (interface{}, error) {
	var out interface{}
	var err error
	switch model.(type) {
	case *models.Area:
		row := models.Area{}
		err = s.db.First(&row, id).Error
		out = &row
	case *models.Address:
		row := models.Address{}
		err = s.db.First(&row, id).Error
		out = &row
	case *models.Device:
		row := models.Device{}
		err = s.db.First(&row, id).Error
		out = &row
	default:
		return nil, fmt.Errorf("unsupported master-data model %T", model)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return out, nil
}

func (s *MasterDataService) attribute(id uint, tableName string, actor Actor, operation string) {
	if err := s.audit.PatchActor(id, tableName, actor, operation); err != nil {
		logger.WithFields(map[string]interface{}{
			"table": tableName,
			"id":    id,
		}).WithError(err).Warn("Audit attribution failed")
	}
}

func setUUID(model interface{}) {
	switch m := model.(type) {
	case *models.Area:
		if m.UUID == "" {
			m.UUID = uuid.NewString()
		}
	case *models.Address:
		if m.UUID == "" {
			m.UUID = uuid.NewString()
		}
	case *models.Device:
		if m.UUID == "" {
			m.UUID = uuid.NewString()
		}
	}
}

func idOf(model interface{}) uint {
	switch m := model.(type) {
	case *models.Area:
		return m.ID
	case *models.Address:
		return m.ID
	case *models.Device:
		return m.ID
	}
	return 0
}
