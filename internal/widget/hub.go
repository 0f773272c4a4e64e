package widget

import (
	"errors"
	"sync"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
)

var ErrInstanceRequired = errors.New("widget instance is required")

const sendBuffer = 16

// Client is one side of a widget instance attached to the hub.
type Client struct {
	Instance string
	Role     Role
	send     chan Message
}

// Outbound yields messages addressed to this client. It is closed when the
// client leaves or is replaced.
func (c *Client) Outbound() <-chan Message {
	return c.send
}

type room struct {
	peers  map[Role]*Client
	config Config
}

// Hub relays widget messages between the host and frame of each instance.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	log   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		log:   logger.OrNop(log).With("component", "widget_hub"),
	}
}

// Join attaches a peer to instance. A second peer with the same role replaces
// the first. The host's cfg becomes the instance config; a frame's cfg is used
// only until a host joins.
func (h *Hub) Join(instance string, role Role, cfg Config) (*Client, error) {
	if instance == "" {
		return nil, ErrInstanceRequired
	}
	if role != RoleHost && role != RoleFrame {
		return nil, ErrUnknownRole
	}

	c := &Client{Instance: instance, Role: role, send: make(chan Message, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[instance]
	if !ok {
		rm = &room{peers: make(map[Role]*Client, 2), config: cfg.WithDefaults()}
		h.rooms[instance] = rm
	} else if role == RoleHost {
		rm.config = cfg.WithDefaults()
	}

	if prev := rm.peers[role]; prev != nil {
		close(prev.send)
		h.log.Info("widget peer replaced", "instance", instance, "role", role)
	}
	rm.peers[role] = c
	h.log.Debug("widget peer joined", "instance", instance, "role", role)
	return c, nil
}

// Leave detaches c. It is a no-op if c was already replaced.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[c.Instance]
	if !ok || rm.peers[c.Role] != c {
		return
	}
	delete(rm.peers, c.Role)
	close(c.send)
	if len(rm.peers) == 0 {
		delete(h.rooms, c.Instance)
	}
	h.log.Debug("widget peer left", "instance", c.Instance, "role", c.Role)
}

// Dispatch validates msg as sent by c and routes it. A frame READY is answered
// with the instance config; config messages update the instance config before
// being relayed.
func (h *Hub) Dispatch(c *Client, msg Message) error {
	if err := msg.Validate(c.Role); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[c.Instance]
	if !ok || rm.peers[c.Role] != c {
		return nil
	}

	switch msg.Type {
	case KindReady:
		h.deliver(c, ConfigMessage(rm.config))
	case KindConfig:
		rm.config = msg.Config.WithDefaults()
		cfg := rm.config
		msg.Config = &cfg
	case KindConfigUpdate:
		rm.config = rm.config.Merge(*msg.Config)
		cfg := rm.config
		msg.Config = &cfg
	}

	if peer := rm.peers[c.Role.Peer()]; peer != nil {
		h.deliver(peer, msg)
	} else {
		h.log.Debug("widget message without peer", "instance", c.Instance, "type", msg.Type)
	}
	return nil
}

// Config returns the current config of instance.
func (h *Hub) Config(instance string) (Config, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[instance]
	if !ok {
		return Config{}, false
	}
	return rm.config, true
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *Client, msg Message) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("widget peer lagging, dropping message", "instance", c.Instance, "role", c.Role, "type", msg.Type)
	}
}
