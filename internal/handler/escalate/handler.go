package escalate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/escalation"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

// Intake records escalation requests.
type Intake interface {
	Submit(ctx context.Context, req model.Request) (model.Record, error)
	Subscribe(buffer int) (<-chan model.Record, func())
}

// Handler serves the escalation endpoints.
type Handler struct {
	intake    Intake
	heartbeat time.Duration
	log       *logger.Logger
}

func New(intake Intake, log *logger.Logger) *Handler {
	return &Handler{intake: intake, heartbeat: 15 * time.Second, log: logger.OrNop(log).With("handler", "escalate")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/escalate", h.handleEscalate)
}

// RegisterAdminRoutes mounts the live escalation feed; r must already be
// behind admin auth.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/escalations/stream", h.handleStream)
}

func (h *Handler) handleEscalate(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.intake.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrMissingFields) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("escalation failed", "session_id", req.SessionID, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to process escalation")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"ok": true, "id": rec.ID})
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	records, cancel := h.intake.Subscribe(16)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEChunk(w, flusher, "status", map[string]string{"message": "stream established"}); err != nil {
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			if err := utils.SendSSEChunk(w, flusher, "escalation", rec); err != nil {
				h.log.Debug("escalation stream closed", "error", err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEChunk(w, flusher, "heartbeat", map[string]string{"time": t.UTC().Format(time.RFC3339)}); err != nil {
				h.log.Debug("escalation stream closed", "error", fmt.Errorf("heartbeat: %w", err))
				return
			}
		}
	}
}
