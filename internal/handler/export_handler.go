package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/escolar-api/internal/service"
	"github.com/noah-isme/escolar-api/pkg/response"
)

// ExportHandler serves archived export files. The signed token in the path
// is the only credential, so the route sits outside the JWT group.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download an archived export via signed token
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, filename, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	path := file.Name()
	file.Close() //nolint:errcheck
	c.FileAttachment(path, filename)
}
