package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/escolar-api/internal/service"
	"github.com/noah-isme/escolar-api/pkg/response"
)

// DirectoryHandler exposes the cross-entity read views.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs DirectoryHandler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Distribution godoc
// @Summary Student counts per grade and group
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /directory/distribution [get]
func (h *DirectoryHandler) Distribution(c *gin.Context) {
	counts, err := h.directory.Distribution(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// StudentProfile godoc
// @Summary Student resolved with their enrollments
// @Tags Directory
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /directory/students/{id} [get]
func (h *DirectoryHandler) StudentProfile(c *gin.Context) {
	profile, err := h.directory.StudentProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
