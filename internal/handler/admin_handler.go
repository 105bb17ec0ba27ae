package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/service"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
	"github.com/noah-isme/escolar-api/pkg/response"
)

// AdminHandler exposes snapshot export/import and the metrics snapshot.
type AdminHandler struct {
	snapshots *service.SnapshotService
	metrics   *service.MetricsService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(snapshots *service.SnapshotService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{snapshots: snapshots, metrics: metrics}
}

// ExportSnapshot godoc
// @Summary Export the full entity state as JSON
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.Snapshot
// @Router /admin/snapshot [get]
func (h *AdminHandler) ExportSnapshot(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	snap, err := h.snapshots.Export(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=snapshot.json")
	c.JSON(http.StatusOK, snap)
}

// ImportSnapshot godoc
// @Summary Replace the entity state with an uploaded snapshot
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.Snapshot true "Snapshot payload"
// @Success 204
// @Router /admin/snapshot [put]
func (h *AdminHandler) ImportSnapshot(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var snap dto.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid snapshot"))
		return
	}
	if err := h.snapshots.Import(c.Request.Context(), claims.UserID, &snap); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Aggregated runtime metrics
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
