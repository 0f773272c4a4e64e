// Package widget implements the embeddable chat widget protocol: the message
// vocabulary exchanged between a host page and the widget frame, the embed
// configuration, and a relay hub that carries messages between the two.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is a widget message type.
type Kind string

const (
	KindReady        Kind = "CAMPUS_SARTHI_READY"
	KindResize       Kind = "CAMPUS_SARTHI_RESIZE"
	KindEvent        Kind = "CAMPUS_SARTHI_EVENT"
	KindConfig       Kind = "CAMPUS_SARTHI_CONFIG"
	KindConfigUpdate Kind = "CAMPUS_SARTHI_CONFIG_UPDATE"
)

// Role identifies which side of the embed a peer is on.
type Role string

const (
	RoleHost  Role = "host"
	RoleFrame Role = "frame"
)

var (
	ErrUnknownKind    = errors.New("unknown widget message kind")
	ErrWrongDirection = errors.New("widget message sent in the wrong direction")
	ErrInvalidPayload = errors.New("invalid widget message payload")
	ErrUnknownRole    = errors.New("unknown widget role")
)

var senders = map[Kind]Role{
	KindReady:        RoleFrame,
	KindResize:       RoleFrame,
	KindEvent:        RoleFrame,
	KindConfig:       RoleHost,
	KindConfigUpdate: RoleHost,
}

// Sender returns the role allowed to send k.
func (k Kind) Sender() (Role, bool) {
	r, ok := senders[k]
	return r, ok
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleHost, RoleFrame:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == RoleHost {
		return RoleFrame
	}
	return RoleHost
}

// Message is one widget protocol message. Only the fields of its kind are set.
type Message struct {
	Type      Kind            `json:"type"`
	Width     string          `json:"width,omitempty"`
	Height    string          `json:"height,omitempty"`
	EventName string          `json:"eventName,omitempty"`
	EventData json.RawMessage `json:"eventData,omitempty"`
	Config    *Config         `json:"config,omitempty"`
}

// Decode parses raw as a message sent by from. Kinds outside the vocabulary,
// kinds sent by the wrong side, and kinds missing their payload are rejected.
func Decode(raw []byte, from Role) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := msg.Validate(from); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate checks the kind, direction and payload of m.
func (m Message) Validate(from Role) error {
	sender, ok := m.Type.Sender()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Type)
	}
	if sender != from {
		return fmt.Errorf("%w: %s from %s", ErrWrongDirection, m.Type, from)
	}

	switch m.Type {
	case KindEvent:
		if strings.TrimSpace(m.EventName) == "" {
			return fmt.Errorf("%w: eventName is required", ErrInvalidPayload)
		}
	case KindConfig, KindConfigUpdate:
		if m.Config == nil {
			return fmt.Errorf("%w: config is required", ErrInvalidPayload)
		}
	}
	return nil
}

// ConfigMessage builds the message that pushes cfg to the frame.
func ConfigMessage(cfg Config) Message {
	return Message{Type: KindConfig, Config: &cfg}
}

// OriginPolicy is the allow-list of origins a widget peer may connect from.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy builds a policy from origins. "*" allows any origin.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.allowAll = true
			continue
		}
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Allows reports whether origin is on the list.
func (p *OriginPolicy) Allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.allowed[strings.TrimRight(origin, "/")]
	return ok
}
