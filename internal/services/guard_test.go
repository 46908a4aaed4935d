package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&models.AdminUser{},
		&models.Employee{},
		&models.Area{},
		&models.Address{},
		&models.Device{},
		&models.AuditLog{},
	)
	assert.NoError(t, err)

	return db
}

func TestVersionGuard_UpdateIfVersionMatches(t *testing.T) {
	db := setupTestDB(t)
	guard := NewVersionGuard(db)

	area := models.Area{UUID: "a-1", Code: "HQ", Name: "Headquarters", Version: 1}
	assert.NoError(t, db.Create(&area).Error)

	t.Run("matching version applies patch and bumps version", func(t *testing.T) {
		err := guard.UpdateIfVersionMatches(&models.Area{}, area.ID, 1, map[string]interface{}{
			"name": "Main Campus",
		})
		assert.NoError(t, err)

		var got models.Area
		assert.NoError(t, db.First(&got, area.ID).Error)
		assert.Equal(t, "Main Campus", got.Name)
		assert.Equal(t, 2, got.Version)
	})

	t.Run("stale version returns conflict and changes nothing", func(t *testing.T) {
		err := guard.UpdateIfVersionMatches(&models.Area{}, area.ID, 1, map[string]interface{}{
			"name": "Stale Writer",
		})
		assert.ErrorIs(t, err, ErrConcurrencyConflict)

		var got models.Area
		assert.NoError(t, db.First(&got, area.ID).Error)
		assert.Equal(t, "Main Campus", got.Name)
		assert.Equal(t, 2, got.Version)
	})

	t.Run("missing row returns not found", func(t *testing.T) {
		err := guard.UpdateIfVersionMatches(&models.Area{}, 9999, 1, map[string]interface{}{
			"name": "Ghost",
		})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestVersionGuard_DeleteIfVersionMatches(t *testing.T) {
	db := setupTestDB(t)
	guard := NewVersionGuard(db)

	area := models.Area{UUID: "a-2", Code: "WH", Name: "Warehouse", Version: 3}
	assert.NoError(t, db.Create(&area).Error)

	t.Run("stale version leaves the row", func(t *testing.T) {
		err := guard.DeleteIfVersionMatches(&models.Area{}, area.ID, 1)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)

		var count int64
		db.Model(&models.Area{}).Where("id = ?", area.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("matching version deletes", func(t *testing.T) {
		err := guard.DeleteIfVersionMatches(&models.Area{}, area.ID, 3)
		assert.NoError(t, err)

		var count int64
		db.Model(&models.Area{}).Where("id = ?", area.ID).Count(&count)
		assert.EqualValues(t, 0, count)
	})

	t.Run("already gone returns not found", func(t *testing.T) {
		err := guard.DeleteIfVersionMatches(&models.Area{}, area.ID, 3)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestVersionGuard_DeleteBatch(t *testing.T) {
	db := setupTestDB(t)
	guard := NewVersionGuard(db)

	a := models.Area{UUID: "b-1", Code: "A", Version: 1}
	b := models.Area{UUID: "b-2", Code: "B", Version: 2}
	c := models.Area{UUID: "b-3", Code: "C", Version: 1}
	assert.NoError(t, db.Create(&a).Error)
	assert.NoError(t, db.Create(&b).Error)
	assert.NoError(t, db.Create(&c).Error)

	t.Run("first failure stops the batch, earlier deletes stay committed", func(t *testing.T) {
		deleted, err := guard.DeleteBatch(&models.Area{}, []VersionedRef{
			{ID: a.ID, Version: 1},
			{ID: b.ID, Version: 1}, // stale
			{ID: c.ID, Version: 1},
		})
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
		assert.Equal(t, []uint{a.ID}, deleted)

		var count int64
		db.Model(&models.Area{}).Count(&count)
		assert.EqualValues(t, 2, count)
	})

	t.Run("clean batch deletes everything in order", func(t *testing.T) {
		deleted, err := guard.DeleteBatch(&models.Area{}, []VersionedRef{
			{ID: b.ID, Version: 2},
			{ID: c.ID, Version: 1},
		})
		assert.NoError(t, err)
		assert.Equal(t, []uint{b.ID, c.ID}, deleted)

		var count int64
		db.Model(&models.Area{}).Count(&count)
		assert.EqualValues(t, 0, count)
	})
}
