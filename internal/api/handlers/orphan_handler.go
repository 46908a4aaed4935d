package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quartermaster/backend/internal/services"
)

// OrphanHandler exposes the identity orphan scan to administrators.
type OrphanHandler struct {
	Scanner *services.OrphanScanner
}

func NewOrphanHandler(scanner *services.OrphanScanner) *OrphanHandler {
	return &OrphanHandler{Scanner: scanner}
}

func (h *OrphanHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orphans/scan", h.Scan)
}

// Scan runs an orphan scan. With dry_run=true (the default) it only reports
// candidates; dry_run=false deletes them from the identity provider.
func (h *OrphanHandler) Scan(c *gin.Context) {
	var req struct {
		DryRun *bool `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	report, err := h.Scanner.Scan(c.Request.Context(), dryRun)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
