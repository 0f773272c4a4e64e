package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/speech"
	"github.com/campus-sarthi/sarthi/backend/internal/service/audio"
)

const (
	readWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxUtterance   = 10 << 20
	defaultFormat  = "pcm"
	endOfUtterance = "end"
)

// Handler serves streaming recognition: the client sends binary audio chunks
// followed by a {"event":"end"} text frame and receives one final
// speech.RecognitionFrame.
type Handler struct {
	transcriber audio.Transcriber
	upgrader    websocket.Upgrader
	log         *logger.Logger
}

func New(transcriber audio.Transcriber, log *logger.Logger) *Handler {
	return &Handler{
		transcriber: transcriber,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
		},
		log: logger.OrNop(log).With("handler", "speech"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/speech/ws", h.handleWebSocket)
}

type controlFrame struct {
	Event string `json:"event"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	locale := query.Get("lang")
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if format == "" {
		format = defaultFormat
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("speech upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.log.With("locale", locale)
	conn.SetReadLimit(maxUtterance)
	conn.SetReadDeadline(time.Now().Add(readWait))

	var buf bytes.Buffer
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("speech read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		switch kind {
		case websocket.BinaryMessage:
			if buf.Len()+len(data) > maxUtterance {
				h.write(conn, speech.RecognitionFrame{Error: "utterance too long"}, log)
				return
			}
			buf.Write(data)
		case websocket.TextMessage:
			var ctrl controlFrame
			if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.Event != endOfUtterance {
				h.write(conn, speech.RecognitionFrame{Error: "unsupported control frame"}, log)
				continue
			}
			h.finish(r.Context(), conn, &buf, format, locale, log)
			return
		}
	}
}

func (h *Handler) finish(ctx context.Context, conn *websocket.Conn, buf *bytes.Buffer, format, locale string, log *logger.Logger) {
	if buf.Len() == 0 {
		h.write(conn, speech.RecognitionFrame{Error: "no audio received"}, log)
		return
	}
	if h.transcriber == nil {
		h.write(conn, speech.RecognitionFrame{Error: "speech recognition unavailable"}, log)
		return
	}

	transcript, err := h.transcriber.Transcribe(ctx, &speech.TranscribeRequest{
		AudioData: buf,
		Format:    format,
		Language:  primaryLanguage(locale),
	})
	if err != nil {
		log.Warn("transcription failed", "error", err)
		h.write(conn, speech.RecognitionFrame{Error: "transcription failed"}, log)
		return
	}

	log.Debug("utterance recognized", "chars", len(transcript.Text))
	if h.write(conn, speech.RecognitionFrame{Text: transcript.Text, IsFinal: true}, log) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}
}

func (h *Handler) write(conn *websocket.Conn, frame speech.RecognitionFrame, log *logger.Logger) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		log.Debug("speech write failed", "error", err)
		return false
	}
	return true
}

// primaryLanguage reduces a locale such as "pa-IN" to "pa".
func primaryLanguage(locale string) string {
	lang, _, _ := strings.Cut(strings.TrimSpace(locale), "-")
	return strings.ToLower(lang)
}
