package admin

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sarthi/sarthi/backend/internal/middleware"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/admin"
	adminsvc "github.com/campus-sarthi/sarthi/backend/internal/service/admin"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	ds, err := model.Seed()
	require.NoError(t, err)
	h := New(adminsvc.NewService(ds, adminsvc.Options{}, nil), nil)

	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(g chi.Router) {
		g.Use(middleware.NewAdminAuth(nil).RequireToken)
		h.RegisterRoutes(g)
	})
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	r := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"token":"abc"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"token":""}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	rec := httptest.NewRecorder()
	setupRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kpi", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConversations(t *testing.T) {
	r := setupRouter(t)

	rec := do(r, http.MethodGet, "/conversations?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Conversations []model.Conversation `json:"conversations"`
		Total         int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/conversations", `{"status":"resolved"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/conversations", `{"conversationId":"nope","status":"resolved"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/conversations", `{"conversationId":"conv-1","status":"resolved"}`).Code)

	rec = do(r, http.MethodGet, "/conversations?status=pending", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}

func TestDocuments(t *testing.T) {
	r := setupRouter(t)

	rec := do(r, http.MethodGet, "/documents?search=handbook", "")
	assert.Contains(t, rec.Body.String(), `"total":1`)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", "faq.docx")
	require.NoError(t, err)
	_, _ = part.Write([]byte("content"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer t")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		Document model.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "DOCX", created.Document.Type)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/documents", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/documents?id="+created.Document.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/documents?id="+created.Document.ID, "").Code)
}

func TestKPIAndVolunteers(t *testing.T) {
	r := setupRouter(t)

	rec := do(r, http.MethodGet, "/kpi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"escalations":23`)
	assert.Contains(t, rec.Body.String(), `"chartData"`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/volunteers", `{"id":"vol-1","action":"approve"}`).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/volunteers", `{"id":"vol-1","action":"reject"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/volunteers", `{"id":"vol-2","action":"skip"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/volunteers", `{"id":"vol-9","action":"reject"}`).Code)
}

func TestOverviewAndHealth(t *testing.T) {
	r := setupRouter(t)

	rec := do(r, http.MethodGet, "/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pendingConversations":2`)

	rec = do(r, http.MethodGet, "/upstream/health", "")
	assert.JSONEq(t, `{"healthy":true}`, rec.Body.String())
}
