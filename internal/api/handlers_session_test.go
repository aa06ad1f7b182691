// handlers_session_test.go - Tests for the session flow handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/config"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
	"github.com/pdf-tools/backend/internal/session"
	"github.com/pdf-tools/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type testAPI struct {
	e        *echo.Echo
	sessions *session.Manager
	timers   *testutil.ManualTimers
}

func newTestAPI(t *testing.T, cfg session.Config) *testAPI {
	t.Helper()

	timers := testutil.NewManualTimers()
	if cfg.AfterFunc == nil && cfg.ProcessDelay == 0 {
		cfg.AfterFunc = timers.AfterFunc
	}
	m := session.NewManager(cfg)
	t.Cleanup(m.CloseAll)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Sessions:      m,
		Upload:        UploadSettings{Accept: ".pdf", Multiple: true},
		StreamTimeout: 5 * time.Second,
		Version:       "test",
	}))

	return &testAPI{e: e, sessions: m, timers: timers}
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) doJSON(t *testing.T, method, path string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return a.do(t, method, path, body, echo.MIMEApplicationJSON)
}

func (a *testAPI) createSession(t *testing.T) string {
	t.Helper()
	rec := a.doJSON(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeSession(t, rec).ID
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.SessionResponse {
	t.Helper()
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr
}

func TestMergeFlowOverHTTP(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id

	rec := a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "merge"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeSession(t, rec)
	assert.Equal(t, models.PhaseToolSelected, resp.Snapshot.Phase)
	require.NotNil(t, resp.Snapshot.View.UploadPanel)
	assert.Equal(t, "Merge PDFs", resp.Snapshot.View.UploadPanel.Title)

	rec = a.doJSON(t, http.MethodPut, base+"/files", map[string]interface{}{
		"files": []models.FileRef{{Name: "a.pdf", Size: 1024}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	assert.Equal(t, models.PhaseFilesStaged, resp.Snapshot.Phase)
	assert.Equal(t, models.LabelProcess, resp.Snapshot.View.Action.Label)

	rec = a.do(t, http.MethodGet, base+"/download", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.doJSON(t, http.MethodPost, base+"/process", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	assert.True(t, resp.Snapshot.Processing)
	assert.False(t, resp.Snapshot.Completed)
	assert.Equal(t, models.LabelProcessing, resp.Snapshot.View.Action.Label)

	rec = a.doJSON(t, http.MethodPost, base+"/process", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)

	require.Equal(t, 1, a.timers.FireAll())

	rec = a.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeSession(t, rec)
	assert.Equal(t, models.PhaseCompleted, resp.Snapshot.Phase)
	assert.False(t, resp.Snapshot.Processing)
	assert.True(t, resp.Snapshot.Completed)
	assert.Equal(t, models.LabelCompleted, resp.Snapshot.View.Action.Label)
	require.NotNil(t, resp.Snapshot.View.Download)
	assert.Equal(t, models.LabelDownload, resp.Snapshot.View.Download.Label)

	rec = a.do(t, http.MethodGet, base+"/download", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTransitionErrors(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"files before tool", http.MethodPut, base + "/files", map[string]interface{}{"files": []models.FileRef{{Name: "a.pdf"}}}, http.StatusConflict, "CONFLICT"},
		{"process without files", http.MethodPost, base + "/process", nil, http.StatusConflict, "CONFLICT"},
		{"unknown tool", http.MethodPut, base + "/tool", map[string]string{"toolId": "rotate"}, http.StatusNotFound, "NOT_FOUND"},
		{"missing tool id", http.MethodPut, base + "/tool", map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown session", http.MethodGet, "/api/sessions/missing", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown session process", http.MethodPost, "/api/sessions/missing/process", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown session keepalive", http.MethodPost, "/api/sessions/missing/keepalive", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.doJSON(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}

	rec := a.do(t, http.MethodGet, base, nil, "")
	assert.Equal(t, models.PhaseIdle, decodeSession(t, rec).Snapshot.Phase, "rejected transitions leave state unchanged")
}

func TestChooseFilesValidation(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id
	require.Equal(t, http.StatusOK, a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "split"}).Code)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"invalid json", `{"files":`, "BAD_REQUEST"},
		{"missing files", `{}`, "VALIDATION_ERROR"},
		{"empty name", `{"files":[{"name":"  "}]}`, "VALIDATION_ERROR"},
		{"negative size", `{"files":[{"name":"a.pdf","size":-1}]}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPut, base+"/files", strings.NewReader(tt.body), echo.MIMEApplicationJSON)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}

	t.Run("empty selection is allowed", func(t *testing.T) {
		rec := a.do(t, http.MethodPut, base+"/files", strings.NewReader(`{"files":[]}`), echo.MIMEApplicationJSON)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		snap := decodeSession(t, rec).Snapshot
		assert.Empty(t, snap.Files)
		assert.Nil(t, snap.View.Action)
	})
}

// countingReader records how many body bytes the server pulled.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestChooseFilesRejectsFileContent(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id
	require.Equal(t, http.StatusOK, a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "compress"}).Code)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="a.pdf"`)
	h.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(bytes.Repeat([]byte("%PDF-1.4 "), 4096))
	require.NoError(t, writer.Close())

	counter := &countingReader{r: body}
	rec := a.do(t, http.MethodPut, base+"/files", counter, writer.FormDataContentType())

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decodeError(t, rec).Code)
	assert.Zero(t, counter.n, "file content must not be read")

	snap := decodeSession(t, a.do(t, http.MethodGet, base, nil, "")).Snapshot
	assert.Empty(t, snap.Files)
}

func TestChooseFilesBodyLimit(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id
	require.Equal(t, http.StatusOK, a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "merge"}).Code)

	padding := strings.Repeat("x", 70*1024)
	body := `{"files":[{"name":"a.pdf","contentType":"` + padding + `"}]}`

	rec := a.do(t, http.MethodPut, base+"/files", strings.NewReader(body), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChooseFilesMetadataOnly(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id
	require.Equal(t, http.StatusOK, a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "compress"}).Code)

	// Same shape the embedded page sends from the browser's file picker
	body := `{"files":[{"name":"a.pdf","size":4194304,"contentType":"application/pdf"},{"name":"notes.txt","size":12,"contentType":"text/plain"}]}`
	rec := a.do(t, http.MethodPut, base+"/files", strings.NewReader(body), echo.MIMEApplicationJSON+"; charset=utf-8")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := decodeSession(t, rec).Snapshot
	require.Len(t, snap.Files, 2)
	assert.Equal(t, models.FileRef{Name: "a.pdf", Size: 4194304, ContentType: "application/pdf"}, snap.Files[0])
	// The accept filter is advisory, so non-PDF names are kept.
	assert.Equal(t, "notes.txt", snap.Files[1].Name)
}

func TestChooseFilesReplacesAndClearsCompleted(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id

	a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "merge"})
	a.doJSON(t, http.MethodPut, base+"/files", map[string]interface{}{"files": testutil.FileRefs("a.pdf", "b.pdf")})
	a.doJSON(t, http.MethodPost, base+"/process", nil)
	a.timers.FireAll()

	rec := a.doJSON(t, http.MethodPut, base+"/files", map[string]interface{}{"files": testutil.FileRefs("c.pdf")})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSession(t, rec).Snapshot
	assert.Equal(t, testutil.FileRefs("c.pdf"), snap.Files)
	assert.False(t, snap.Completed)
	assert.Nil(t, snap.View.Download)
}

func TestGetSessionMsgpack(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)
	base := "/api/sessions/" + id
	a.doJSON(t, http.MethodPut, base+"/tool", map[string]string{"toolId": "convert"})
	a.doJSON(t, http.MethodPut, base+"/files", map[string]interface{}{"files": testutil.FileRefs("a.pdf")})

	jsonResp := decodeSession(t, a.do(t, http.MethodGet, base, nil, ""))

	for _, variant := range []struct {
		name   string
		path   string
		accept string
	}{
		{"query", base + "?format=msgpack", ""},
		{"accept header", base, MIMEMsgpack},
	} {
		t.Run(variant.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, variant.path, nil)
			if variant.accept != "" {
				req.Header.Set(echo.HeaderAccept, variant.accept)
			}
			rec := httptest.NewRecorder()
			a.e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, MIMEMsgpack, rec.Header().Get(echo.HeaderContentType))

			var resp models.SessionResponse
			require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, jsonResp, resp)
		})
	}
}

func TestDeleteSession(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)

	rec := a.do(t, http.MethodDelete, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessions(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	first := a.createSession(t)
	second := a.createSession(t)
	a.doJSON(t, http.MethodPut, "/api/sessions/"+first+"/tool", map[string]string{"toolId": "merge"})

	rec := a.do(t, http.MethodGet, "/api/sessions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	phases := map[string]models.Phase{}
	for _, info := range list {
		phases[info.ID] = info.Phase
	}
	assert.Equal(t, models.PhaseToolSelected, phases[first])
	assert.Equal(t, models.PhaseIdle, phases[second])
}

func TestKeepAlive(t *testing.T) {
	a := newTestAPI(t, session.Config{})
	id := a.createSession(t)

	rec := a.do(t, http.MethodPost, "/api/sessions/"+id+"/keepalive", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateSessionAtCapacity(t *testing.T) {
	a := newTestAPI(t, session.Config{MaxSessions: 1})
	a.createSession(t)

	rec := a.doJSON(t, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Code)
}

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{flow.ErrClosed, http.StatusNotFound},
		{flow.ErrUnknownTool, http.StatusNotFound},
		{session.ErrTooManySessions, http.StatusServiceUnavailable},
		{flow.ErrNoToolSelected, http.StatusConflict},
		{flow.ErrNothingToProcess, http.StatusConflict},
		{flow.ErrAlreadyProcessing, http.StatusConflict},
		{flow.ErrNotCompleted, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, fromDomainError(tt.err, "s1").Status)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", NewConflictError("busy"), http.StatusConflict, "CONFLICT"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestErrorHandlerDetails(t *testing.T) {
	e := echo.New()
	cause := errors.New("disk quota exceeded on /var/tmp")

	tests := []struct {
		name        string
		handler     echo.HTTPErrorHandler
		err         error
		wantDetails string
	}{
		{"default hides plain error", ErrorHandler, cause, ""},
		{"default hides internal cause", ErrorHandler, NewInternalError("unexpected error", cause), ""},
		{"default keeps client error details", ErrorHandler, NewBadRequestError("invalid JSON body", errors.New("unexpected EOF")), "unexpected EOF"},
		{"debug shows plain error", NewErrorHandler(true), cause, cause.Error()},
		{"debug shows internal cause", NewErrorHandler(true), NewInternalError("unexpected error", cause), cause.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			tt.handler(tt.err, c)

			assert.Equal(t, tt.wantDetails, decodeError(t, rec).Details)
			if tt.wantDetails == "" {
				assert.NotContains(t, rec.Body.String(), "quota")
			}
		})
	}
}

func TestSetupMiddlewareErrorDetails(t *testing.T) {
	for _, level := range []string{"info", "debug"} {
		t.Run(level, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Advanced.EnableRequestLogging = false
			cfg.Processing.EnableCompression = false
			cfg.Server.ReadTimeout = 0
			cfg.Advanced.LogLevel = level

			e := echo.New()
			SetupMiddleware(e, cfg, slog.Default())
			e.GET("/fail", func(c echo.Context) error {
				return errors.New("db password rejected")
			})

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			if level == "debug" {
				assert.Equal(t, "db password rejected", decodeError(t, rec).Details)
			} else {
				assert.Empty(t, decodeError(t, rec).Details)
			}
		})
	}
}
