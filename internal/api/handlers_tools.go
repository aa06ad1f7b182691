// handlers_tools.go - Tool catalog handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/models"
)

// UploadSettings is the advisory file picker hint sent to clients.
type UploadSettings struct {
	Accept   string `json:"accept"`
	Multiple bool   `json:"multiple"`
}

// ToolHandlerImpl implements the ToolHandler interface
type ToolHandlerImpl struct {
	catalog *catalog.Catalog
	upload  UploadSettings
}

// NewToolHandler creates a new tool handler
func NewToolHandler(cat *catalog.Catalog, upload UploadSettings) ToolHandler {
	if cat == nil {
		cat = catalog.Default()
	}
	return &ToolHandlerImpl{
		catalog: cat,
		upload:  upload,
	}
}

// HandleListTools returns every tool in gallery order
func (h *ToolHandlerImpl) HandleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Tools())
}

// HandleGetTool returns a single tool descriptor
func (h *ToolHandlerImpl) HandleGetTool(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	tool, ok := h.catalog.Get(models.ToolID(id))
	if !ok {
		return NewNotFoundError("tool", id)
	}
	return c.JSON(http.StatusOK, tool)
}

// HandleUploadConfig returns the file picker hint
func (h *ToolHandlerImpl) HandleUploadConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.upload)
}
