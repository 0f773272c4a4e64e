package widget

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/widget"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Handler serves the widget config and relay endpoints.
type Handler struct {
	hub       *widget.Hub
	host      string
	origins   *widget.OriginPolicy
	supported func(string) bool
	upgrader  websocket.Upgrader
	log       *logger.Logger
}

// New builds the handler. host is the public base URL of the widget frame;
// supported reports whether a language is enabled.
func New(hub *widget.Hub, host string, origins *widget.OriginPolicy, supported func(string) bool, log *logger.Logger) *Handler {
	h := &Handler{
		hub:       hub,
		host:      host,
		origins:   origins,
		supported: supported,
		log:       logger.OrNop(log).With("handler", "widget"),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/widget", func(wr chi.Router) {
		wr.Get("/config", h.handleConfig)
		wr.Get("/ws", h.handleWebSocket)
	})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if !h.origins.Allows(origin) {
		h.log.Warn("widget origin rejected", "origin", origin)
		return false
	}
	return true
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	q, err := widget.ParseEmbedQuery(r.URL.Query(), h.supported)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := q.Config(h.host)
	embedURL, err := widget.EmbedURL(cfg)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to build embed url")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"embedUrl": embedURL, "config": cfg})
}

type errorFrame struct {
	Error string `json:"error"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	instance := query.Get("instance")
	if instance == "" {
		utils.RespondError(w, http.StatusBadRequest, "instance is required")
		return
	}
	role, err := widget.ParseRole(query.Get("role"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	embed, err := widget.ParseEmbedQuery(query, h.supported)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("widget upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client, err := h.hub.Join(instance, role, embed.Config(h.host))
	if err != nil {
		h.log.Warn("widget join failed", "instance", instance, "error", err)
		return
	}
	defer h.hub.Leave(client)

	log := h.log.With("instance", instance, "role", role)
	log.Info("widget peer connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rejections := make(chan errorFrame, 4)
	go h.writeLoop(ctx, cancel, conn, client, rejections, log)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("widget read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := widget.Decode(raw, role)
		if err == nil {
			err = h.hub.Dispatch(client, msg)
		}
		if err != nil {
			log.Debug("widget message rejected", "error", err)
			select {
			case rejections <- errorFrame{Error: rejectionText(err)}:
			default:
			}
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, client *widget.Client, rejections <-chan errorFrame, log *logger.Logger) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			log.Debug("widget write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.Outbound():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"),
					time.Now().Add(writeWait))
				conn.Close()
				return
			}
			if !write(msg) {
				conn.Close()
				return
			}
		case frame := <-rejections:
			if !write(frame) {
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, widget.ErrUnknownKind):
		return "unknown message kind"
	case errors.Is(err, widget.ErrWrongDirection):
		return "message kind not allowed from this side"
	default:
		return "invalid message"
	}
}
