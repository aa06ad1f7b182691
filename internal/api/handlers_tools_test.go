// handlers_tools_test.go - Tests for catalog and health handlers
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/models"
	"github.com/pdf-tools/backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleListTools(t *testing.T) {
	e := echo.New()
	h := NewToolHandler(nil, UploadSettings{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tools", nil), rec)

	require.NoError(t, h.HandleListTools(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var tools []models.Tool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	require.Len(t, tools, 4)

	var ids []models.ToolID
	for _, tool := range tools {
		ids = append(ids, tool.ID)
	}
	assert.Equal(t, []models.ToolID{models.ToolMerge, models.ToolSplit, models.ToolCompress, models.ToolConvert}, ids)
	assert.Equal(t, []string{"Unlimited files", "Preserve quality", "Custom order"}, tools[0].Features)
}

func TestHandleGetTool(t *testing.T) {
	e := echo.New()
	h := NewToolHandler(catalog.Default(), UploadSettings{})

	t.Run("known", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues("compress")

		require.NoError(t, h.HandleGetTool(c))

		var tool models.Tool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tool))
		assert.Equal(t, "Compress PDF", tool.Title)
		assert.Equal(t, "Reduce file size while maintaining quality", tool.Description)
	})

	t.Run("unknown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues("rotate")

		err := h.HandleGetTool(c)
		require.Error(t, err)

		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}

func TestHandleUploadConfig(t *testing.T) {
	a := newTestAPI(t, session.Config{})

	rec := a.do(t, http.MethodGet, "/api/config/upload", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accept":".pdf","multiple":true}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	a.createSession(t)
	a.createSession(t)

	rec := a.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(2), body["sessions"])
}
