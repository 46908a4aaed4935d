package services

import (
	"gorm.io/gorm"
)

// VersionGuard enforces optimistic concurrency on versioned master-data rows.
// Every check-and-mutate is a single conditional statement against the store;
// there is no read-then-write window.
type VersionGuard struct {
	db *gorm.DB
}

// NewVersionGuard creates a guard over the given database.
func NewVersionGuard(db *gorm.DB) *VersionGuard {
	return &VersionGuard{db: db}
}

// VersionedRef identifies one row and the version the caller last saw.
type VersionedRef struct {
	ID      uint `json:"id" binding:"required"`
	Version int  `json:"version" binding:"required"`
}

// UpdateIfVersionMatches applies patch to the row only if its stored version
// equals expected, bumping the version in the same statement. Returns
// ErrConcurrencyConflict when the row exists at a different version and
// ErrRecordNotFound when it is gone.
func (g *VersionGuard) UpdateIfVersionMatches(model interface{}, id uint, expected int, patch map[string]interface{}) error {
	updates := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + ?", 1)

	res := g.db.Model(model).Where("id = ? AND version = ?", id, expected).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return g.classifyMiss(model, id)
	}
	return nil
}

// DeleteIfVersionMatches removes the row only if its stored version equals
// expected.
func (g *VersionGuard) DeleteIfVersionMatches(model interface{}, id uint, expected int) error {
	res := g.db.Where("id = ? AND version = ?", id, expected).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return g.classifyMiss(model, id)
	}
	return nil
}

// DeleteBatch runs one conditional delete per ref, in order. The first
// failing ref aborts the rest of the batch, but deletes committed before it
// stay committed; callers get the ids that went through alongside the error.
// This is at-least-one-failure reporting, not all-or-nothing transactionality.
func (g *VersionGuard) DeleteBatch(model interface{}, refs []VersionedRef) ([]uint, error) {
	deleted := make([]uint, 0, len(refs))
	for _, ref := range refs {
		if err := g.DeleteIfVersionMatches(model, ref.ID, ref.Version); err != nil {
			return deleted, err
		}
		deleted = append(deleted, ref.ID)
	}
	return deleted, nil
}

// classifyMiss distinguishes a vanished row from a version mismatch after a
// conditional statement affected zero rows.
func (g *VersionGuard) classifyMiss(model interface{}, id uint) error {
	var count int64
	if err := g.db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return ErrConcurrencyConflict
}
