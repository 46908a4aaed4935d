package models

import (
	"time"
)

// Audit operations as they appear in audit_logs.operation.
const (
	AuditOpInsert = "INSERT"
	AuditOpUpdate = "UPDATE"
	AuditOpDelete = "DELETE"
)

// ServiceActorName and ServiceActorCode identify the privileged service
// credential that writes audit rows. Rows carrying these values have not been
// attributed to a human actor yet.
const (
	ServiceActorName = "service_role"
	ServiceActorCode = "SYSTEM"
)

// AuditLog is an append-only record of a master-data mutation. Rows are
// written by the audit recorder under the privileged service credential and
// later re-attributed to the initiating admin by the attribution patcher.
// Only ActorName and ActorCode are ever rewritten; everything else is
// immutable once created.
type AuditLog struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	UUID      string `json:"uuid" gorm:"uniqueIndex"`
	TableName string `json:"table_name" gorm:"index:idx_audit_target"`
	Operation string `json:"operation" gorm:"index:idx_audit_target"` // INSERT, UPDATE, DELETE

	// Row state before and after the mutation, JSON-encoded. OldData is empty
	// for INSERT, NewData is empty for DELETE.
	OldData string `json:"old_data" gorm:"type:text"`
	NewData string `json:"new_data" gorm:"type:text"`

	ActorName string `json:"actor_name"`
	ActorCode string `json:"actor_code"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// Attributed reports whether the row has been patched to a human actor.
func (a *AuditLog) Attributed() bool {
	return a.ActorName != ServiceActorName || a.ActorCode != ServiceActorCode
}
