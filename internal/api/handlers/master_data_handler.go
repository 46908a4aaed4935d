package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/api/middleware"
	"github.com/quartermaster/backend/internal/models"
	"github.com/quartermaster/backend/internal/services"
)

// MasterDataHandler serves the versioned master-data entities without an
// identity side: areas, addresses and devices.
type MasterDataHandler struct {
	DB     *gorm.DB
	Master *services.MasterDataService
}

func NewMasterDataHandler(db *gorm.DB, master *services.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{DB: db, Master: master}
}

func (h *MasterDataHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/areas", h.ListAreas)
	r.POST("/areas", h.CreateArea)
	r.PUT("/areas/:id", h.UpdateArea)
	r.DELETE("/areas/:id", h.DeleteArea)

	r.GET("/addresses", h.ListAddresses)
	r.POST("/addresses", h.CreateAddress)
	r.PUT("/addresses/:id", h.UpdateAddress)
	r.DELETE("/addresses/:id", h.DeleteAddress)

	r.GET("/devices", h.ListDevices)
	r.POST("/devices", h.CreateDevice)
	r.PUT("/devices/:id", h.UpdateDevice)
	r.DELETE("/devices/:id", h.DeleteDevice)
	r.POST("/devices/batch-delete", h.BatchDeleteDevices)
}

func (h *MasterDataHandler) ListAreas(c *gin.Context) {
	var rows []models.Area
	if err := h.DB.Order("code ASC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch areas"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *MasterDataHandler) CreateArea(c *gin.Context) {
	var row models.Area
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row.ID = 0
	row.Version = 1
	if err := h.Master.Create(&row, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

type areaUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     int    `json:"version" binding:"required"`
}

func (h *MasterDataHandler) UpdateArea(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req areaUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := map[string]interface{}{"name": req.Name, "description": req.Description}
	if err := h.Master.Update(&models.Area{}, id, req.Version, patch, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Area updated"})
}

func (h *MasterDataHandler) DeleteArea(c *gin.Context) {
	h.deleteVersioned(c, &models.Area{})
}

func (h *MasterDataHandler) ListAddresses(c *gin.Context) {
	var rows []models.Address
	if err := h.DB.Order("label ASC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch addresses"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *MasterDataHandler) CreateAddress(c *gin.Context) {
	var row models.Address
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row.ID = 0
	row.Version = 1
	if err := h.Master.Create(&row, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

type addressUpdateRequest struct {
	Label      string `json:"label"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Version    int    `json:"version" binding:"required"`
}

func (h *MasterDataHandler) UpdateAddress(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req addressUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := map[string]interface{}{
		"label":       req.Label,
		"street":      req.Street,
		"city":        req.City,
		"postal_code": req.PostalCode,
	}
	if err := h.Master.Update(&models.Address{}, id, req.Version, patch, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address updated"})
}

func (h *MasterDataHandler) DeleteAddress(c *gin.Context) {
	h.deleteVersioned(c, &models.Address{})
}

func (h *MasterDataHandler) ListDevices(c *gin.Context) {
	query := h.DB.Order("asset_tag ASC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.Device
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch devices"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *MasterDataHandler) CreateDevice(c *gin.Context) {
	var row models.Device
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row.ID = 0
	row.Version = 1
	if row.Status == "" {
		row.Status = "in_stock"
	}
	if err := h.Master.Create(&row, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

type deviceUpdateRequest struct {
	Model              string  `json:"model"`
	SerialNumber       string  `json:"serial_number"`
	Status             string  `json:"status"`
	AssignedEmployeeID *uint   `json:"assigned_employee_id"`
	AcknowledgedBy     *string `json:"acknowledged_by"`
	Version            int     `json:"version" binding:"required"`
}

func (h *MasterDataHandler) UpdateDevice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req deviceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := map[string]interface{}{
		"model":                req.Model,
		"serial_number":        req.SerialNumber,
		"status":               req.Status,
		"assigned_employee_id": req.AssignedEmployeeID,
		"acknowledged_by":      req.AcknowledgedBy,
	}
	if err := h.Master.Update(&models.Device{}, id, req.Version, patch, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device updated"})
}

func (h *MasterDataHandler) DeleteDevice(c *gin.Context) {
	h.deleteVersioned(c, &models.Device{})
}

func (h *MasterDataHandler) BatchDeleteDevices(c *gin.Context) {
	var req struct {
		Refs []services.VersionedRef `json:"refs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deleted, err := h.Master.DeleteBatch(&models.Device{}, req.Refs, middleware.ActorFrom(c))
	if err != nil {
		c.JSON(reconcileStatus(err), gin.H{"error": err.Error(), "deleted": deleted})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *MasterDataHandler) deleteVersioned(c *gin.Context, model interface{}) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Query("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version query parameter required"})
		return
	}
	if err := h.Master.Delete(model, id, version, middleware.ActorFrom(c)); err != nil {
		respondReconcileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}
