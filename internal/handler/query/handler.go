package query

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
	"github.com/campus-sarthi/sarthi/backend/internal/service/gateway"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

// Gateway answers chat queries.
type Gateway interface {
	Query(ctx context.Context, req chat.QueryRequest) (chat.QueryResponse, error)
}

// Handler serves POST /query.
type Handler struct {
	gateway Gateway
	log     *logger.Logger
}

func New(gw Gateway, log *logger.Logger) *Handler {
	return &Handler{gateway: gw, log: logger.OrNop(log).With("handler", "query")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.handleQuery)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req chat.QueryRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Modality == "" {
		req.Modality = chat.ModalityFor(req.Text)
	}

	resp, err := h.gateway.Query(r.Context(), req)
	if err != nil {
		if errors.Is(err, gateway.ErrEmptyQuery) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("query failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to process query")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}
