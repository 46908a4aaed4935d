package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/api/middleware"
	"github.com/quartermaster/backend/internal/models"
	"github.com/quartermaster/backend/internal/services"
)

type EmployeeHandler struct {
	DB        *gorm.DB
	Reconcile *services.ReconcileService
}

func NewEmployeeHandler(db *gorm.DB, reconcile *services.ReconcileService) *EmployeeHandler {
	return &EmployeeHandler{DB: db, Reconcile: reconcile}
}

func (h *EmployeeHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/employees", h.List)
	r.GET("/employees/:id", h.Get)
	r.POST("/employees", h.Upsert)
	r.POST("/employees/batch", h.BatchUpsert)
	r.DELETE("/employees/:id", h.Delete)
	r.POST("/employees/batch-delete", h.BatchDelete)
}

// List returns all employees, optionally filtered by area.
func (h *EmployeeHandler) List(c *gin.Context) {
	query := h.DB.Order("code ASC")
	if area := c.Query("area_id"); area != "" {
		query = query.Where("area_id = ?", area)
	}

	var employees []models.Employee
	if err := query.Find(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch employees"})
		return
	}
	c.JSON(http.StatusOK, employees)
}

// Get returns a single employee by ID.
func (h *EmployeeHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}

	var employee models.Employee
	if err := h.DB.First(&employee, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Upsert creates or refreshes one employee and its identity account.
func (h *EmployeeHandler) Upsert(c *gin.Context) {
	var fields services.UpsertFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Reconcile.Upsert(c.Request.Context(), fields, middleware.ActorFrom(c))
	if err != nil {
		respondReconcileError(c, err)
		return
	}

	status := http.StatusOK
	if result.IdentityAction == services.IdentityCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// BatchUpsert processes a spreadsheet-import style batch. Entries are
// processed sequentially and each one reports its own outcome; the response
// is 200 even when some entries failed.
func (h *EmployeeHandler) BatchUpsert(c *gin.Context) {
	var req struct {
		Entries []services.UpsertFields `json:"entries" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.Reconcile.BatchUpsert(c.Request.Context(), req.Entries, middleware.ActorFrom(c))

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
		"failed":  failed,
	})
}

// Delete removes one employee, its identity account first. The caller must
// supply the version it last saw.
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}
	version, err := strconv.Atoi(c.Query("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version query parameter required"})
		return
	}

	if err := h.Reconcile.Delete(c.Request.Context(), uint(id), version, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}

// BatchDelete removes employees one at a time; the first failure stops the
// batch and the ids already deleted are reported back.
func (h *EmployeeHandler) BatchDelete(c *gin.Context) {
	var req struct {
		Refs []services.VersionedRef `json:"refs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.Reconcile.DeleteBatch(c.Request.Context(), req.Refs, middleware.ActorFrom(c))
	if err != nil {
		status := reconcileStatus(err)
		c.JSON(status, gin.H{
			"error":   err.Error(),
			"deleted": deleted,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// respondReconcileError maps service sentinels to HTTP statuses.
func respondReconcileError(c *gin.Context, err error) {
	c.JSON(reconcileStatus(err), gin.H{"error": err.Error()})
}

func reconcileStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrDuplicateCode):
		return http.StatusConflict
	case errors.Is(err, services.ErrAmbiguousIdentity):
		return http.StatusConflict
	case errors.Is(err, services.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrIdentityProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
