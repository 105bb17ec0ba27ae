package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
	"github.com/noah-isme/escolar-api/pkg/response"
)

type lifecycleService interface {
	PromoteAll(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error)
	DemoteAll(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error)
	DeleteAllEnrollments(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error)
	DeleteAllAttendance(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error)
	DeleteGroupCascade(ctx context.Context, userID string, req dto.DeleteGroupRequest) (*models.LifecycleRun, error)
	Runs(ctx context.Context, limit int) ([]models.LifecycleRun, error)
}

// LifecycleHandler exposes the gated destructive operations. Every endpoint
// requires the caller's password in the body; the service re-verifies it
// before anything is mutated.
type LifecycleHandler struct {
	lifecycle lifecycleService
}

// NewLifecycleHandler constructs LifecycleHandler.
func NewLifecycleHandler(lifecycle lifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle}
}

func (h *LifecycleHandler) gated(c *gin.Context) (string, dto.GatedRequest, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", dto.GatedRequest{}, false
	}
	var req dto.GatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return "", dto.GatedRequest{}, false
	}
	return claims.UserID, req, true
}

// PromoteAll godoc
// @Summary Advance every student one grade
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.GatedRequest true "Re-authentication payload"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/promote [post]
func (h *LifecycleHandler) PromoteAll(c *gin.Context) {
	userID, req, ok := h.gated(c)
	if !ok {
		return
	}
	run, err := h.lifecycle.PromoteAll(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// DemoteAll godoc
// @Summary Move every student one grade down
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.GatedRequest true "Re-authentication payload"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/demote [post]
func (h *LifecycleHandler) DemoteAll(c *gin.Context) {
	userID, req, ok := h.gated(c)
	if !ok {
		return
	}
	run, err := h.lifecycle.DemoteAll(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// DeleteAllEnrollments godoc
// @Summary Delete every enrollment
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.GatedRequest true "Re-authentication payload"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/enrollments [delete]
func (h *LifecycleHandler) DeleteAllEnrollments(c *gin.Context) {
	userID, req, ok := h.gated(c)
	if !ok {
		return
	}
	run, err := h.lifecycle.DeleteAllEnrollments(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// DeleteAllAttendance godoc
// @Summary Delete every attendance record
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.GatedRequest true "Re-authentication payload"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/attendance [delete]
func (h *LifecycleHandler) DeleteAllAttendance(c *gin.Context) {
	userID, req, ok := h.gated(c)
	if !ok {
		return
	}
	run, err := h.lifecycle.DeleteAllAttendance(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// DeleteGroupCascade godoc
// @Summary Delete a whole grade/group cohort with its enrollments and attendance
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.DeleteGroupRequest true "Cohort and re-authentication payload"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/group [delete]
func (h *LifecycleHandler) DeleteGroupCascade(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DeleteGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	run, err := h.lifecycle.DeleteGroupCascade(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Runs godoc
// @Summary Recent lifecycle runs, newest first
// @Tags Lifecycle
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/runs [get]
func (h *LifecycleHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.lifecycle.Runs(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}
