package admin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/admin"
	adminsvc "github.com/campus-sarthi/sarthi/backend/internal/service/admin"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

const maxDocumentBytes = 32 << 20

// Service is the admin view backend.
type Service interface {
	Conversations(status string) []model.Conversation
	SetConversationStatus(id, status string) error
	Documents(search string) []model.Document
	AddDocument(ctx context.Context, filename string, size int64, content io.Reader) (model.Document, error)
	DeleteDocument(id string) error
	KPI() (model.KPI, []model.ChartPoint)
	Volunteers() []model.VolunteerSubmission
	ReviewVolunteer(id, action string) error
	UpstreamHealthy(ctx context.Context) bool
	Overview(ctx context.Context) (adminsvc.Overview, error)
}

// Handler serves /admin.
type Handler struct {
	svc Service
	log *logger.Logger
}

func New(svc Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: logger.OrNop(log).With("handler", "admin")}
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// RegisterRoutes mounts the token-protected routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.handleListConversations)
	r.Patch("/conversations", h.handleUpdateConversation)
	r.Get("/documents", h.handleListDocuments)
	r.Post("/documents", h.handleUploadDocument)
	r.Delete("/documents", h.handleDeleteDocument)
	r.Get("/kpi", h.handleKPI)
	r.Get("/volunteers", h.handleListVolunteers)
	r.Post("/volunteers", h.handleReviewVolunteer)
	r.Get("/overview", h.handleOverview)
	r.Get("/upstream/health", h.handleUpstreamHealth)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Token) == "" {
		utils.RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	h.log.Info("admin login accepted")
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.StatusPending && status != model.StatusResolved {
		utils.RespondError(w, http.StatusBadRequest, "status must be pending or resolved")
		return
	}
	convs := h.svc.Conversations(status)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"conversations": convs, "total": len(convs)})
}

func (h *Handler) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		Status         string `json:"status"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ConversationID == "" || payload.Status == "" {
		utils.RespondError(w, http.StatusBadRequest, "conversationId and status are required")
		return
	}

	switch err := h.svc.SetConversationStatus(payload.ConversationID, payload.Status); {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, adminsvc.ErrConversationNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, adminsvc.ErrInvalidStatus):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.respondInternal(w, "update conversation", err)
	}
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := h.svc.Documents(r.URL.Query().Get("search"))
	utils.RespondJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	doc, err := h.svc.AddDocument(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		h.log.Warn("document upload failed", "name", header.Filename, "error", err)
		utils.RespondError(w, http.StatusBadGateway, "failed to index document")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"ok": true, "document": doc})
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		utils.RespondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.svc.DeleteDocument(id); err != nil {
		if errors.Is(err, adminsvc.ErrDocumentNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondInternal(w, "delete document", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleKPI(w http.ResponseWriter, _ *http.Request) {
	kpi, chart := h.svc.KPI()
	utils.RespondJSON(w, http.StatusOK, map[string]any{"kpi": kpi, "chartData": chart})
}

func (h *Handler) handleListVolunteers(w http.ResponseWriter, _ *http.Request) {
	queue := h.svc.Volunteers()
	utils.RespondJSON(w, http.StatusOK, map[string]any{"queue": queue, "total": len(queue)})
}

func (h *Handler) handleReviewVolunteer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ID == "" || payload.Action == "" {
		utils.RespondError(w, http.StatusBadRequest, "id and action are required")
		return
	}

	switch err := h.svc.ReviewVolunteer(payload.ID, payload.Action); {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, adminsvc.ErrSubmissionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, adminsvc.ErrInvalidAction):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, adminsvc.ErrAlreadyReviewed):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.respondInternal(w, "review volunteer", err)
	}
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context())
	if err != nil {
		h.respondInternal(w, "overview", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ov)
}

func (h *Handler) handleUpstreamHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"healthy": h.svc.UpstreamHealthy(r.Context())})
}

func (h *Handler) respondInternal(w http.ResponseWriter, op string, err error) {
	h.log.Error("admin request failed", "op", op, "error", err)
	utils.RespondError(w, http.StatusInternalServerError, "internal error")
}
