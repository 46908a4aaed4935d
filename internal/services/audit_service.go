package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/logger"
	"github.com/quartermaster/backend/internal/metrics"
	"github.com/quartermaster/backend/internal/models"
)

// Actor identifies the human who initiated a mutation. It is threaded
// explicitly from the request context into the patcher; there is no ambient
// current-user state in the services.
type Actor struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// AuditService records master-data mutations and re-attributes them.
//
// Rows are written under the privileged service credential, the same way a
// database trigger would write them: the true actor is not known at the point
// of the write. PatchActor runs afterwards and rewrites only the actor fields
// of the single row the mutation produced.
type AuditService struct {
	db     *gorm.DB
	window time.Duration
}

// NewAuditService creates the service. window bounds how far back PatchActor
// looks for the row a mutation just produced.
func NewAuditService(db *gorm.DB, window time.Duration) *AuditService {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &AuditService{db: db, window: window}
}

// Record appends an audit row for one mutation. oldState/newState may be nil
// (INSERT has no old state, DELETE no new state). Failures are logged and
// swallowed: an audit miss must never fail the business write that caused it.
func (s *AuditService) Record(table, operation string, oldState, newState interface{}) {
	row := models.AuditLog{
		UUID:      uuid.NewString(),
		TableName: table,
		Operation: operation,
		OldData:   marshalState(oldState),
		NewData:   marshalState(newState),
		ActorName: models.ServiceActorName,
		ActorCode: models.ServiceActorCode,
	}
	if err := s.db.Create(&row).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"table":     table,
			"operation": operation,
		}).WithError(err).Error("Failed to record audit row")
	}
}

// PatchActor locates the newest audit row the mutation of targetID produced
// and rewrites its actor fields to the initiating admin. The row is matched by
// table, operation and payload within a short trailing window; everything
// outside the actor fields stays untouched. A missing row is logged and
// swallowed, at most one row is patched per call.
func (s *AuditService) PatchActor(targetID uint, table string, actor Actor, operation string) error {
	payloadColumn := "new_data"
	if operation == models.AuditOpDelete {
		payloadColumn = "old_data"
	}
	// Match "id":N at a JSON value boundary so id 1 never matches id 12.
	idComma := fmt.Sprintf(`%%"id":%d,%%`, targetID)
	idBrace := fmt.Sprintf(`%%"id":%d}%%`, targetID)

	var row models.AuditLog
	err := s.db.
		Where("table_name = ? AND operation = ?", table, operation).
		Where("created_at >= ?", time.Now().Add(-s.window)).
		Where(fmt.Sprintf("(%s LIKE ? OR %s LIKE ?)", payloadColumn, payloadColumn), idComma, idBrace).
		Order("created_at DESC").Order("id DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			metrics.IncAuditPatchSkipped()
			logger.WithFields(map[string]interface{}{
				"table":     table,
				"operation": operation,
				"target_id": targetID,
			}).Warn("No audit row found to attribute; skipping")
			return nil
		}
		return fmt.Errorf("query audit rows: %w", err)
	}

	if err := s.db.Model(&models.AuditLog{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
		"actor_name": actor.Name,
		"actor_code": actor.Code,
	}).Error; err != nil {
		return fmt.Errorf("patch audit actor: %w", err)
	}
	metrics.IncAuditPatchApplied()
	return nil
}

// List returns audit rows, newest first, optionally filtered by table name.
func (s *AuditService) List(table string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	query := s.db.Order("created_at desc").Order("id desc").Limit(limit)
	if table != "" {
		query = query.Where("table_name = ?", table)
	}
	var rows []models.AuditLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func marshalState(state interface{}) string {
	if state == nil {
		return ""
	}
	data, err := json.Marshal(state)
	if err != nil {
		return ""
	}
	return string(data)
}
