package audio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/speech"
	audiosvc "github.com/campus-sarthi/sarthi/backend/internal/service/audio"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

const maxUploadBytes = 32 << 20

// Library stores uploaded clips.
type Library interface {
	Store(ctx context.Context, sessionID, format, language string, r io.Reader) (speech.UploadResponse, error)
	Get(name string) (*audiosvc.Clip, error)
}

// Handler serves audio upload and playback.
type Handler struct {
	library Library
	log     *logger.Logger
}

func New(library Library, log *logger.Logger) *Handler {
	return &Handler{library: library, log: logger.OrNop(log).With("handler", "audio")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload-audio", h.handleUpload)
	r.Get("/audio/{name}", h.handleGet)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	resp, err := h.library.Store(r.Context(), r.FormValue("sessionId"), audiosvc.InferFormat(header.Filename), r.FormValue("language"), file)
	if err != nil {
		if errors.Is(err, audiosvc.ErrEmptyClip) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("audio upload failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	clip, err := h.library.Get(chi.URLParam(r, "name"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "audio not found")
		return
	}

	w.Header().Set("Content-Type", "audio/"+clip.Format)
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(clip.Data); err != nil {
		h.log.Warn("failed to write audio response", "clip", clip.Name, "error", err)
	}
}
