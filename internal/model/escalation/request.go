package escalation

import (
	"errors"
	"strings"
	"time"
)

// ReasonUserRequest is the only reason code the chat surface emits.
const ReasonUserRequest = "user_request"

var ErrMissingFields = errors.New("sessionId, message, and reason are required")

// Request asks for a hand-off to a human. Write-once.
type Request struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
	Language  string `json:"language"`
	Contact   string `json:"contact,omitempty"`
}

// Validate rejects requests missing the session, message, or reason.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" || strings.TrimSpace(r.Message) == "" || strings.TrimSpace(r.Reason) == "" {
		return ErrMissingFields
	}
	return nil
}

// Record is an accepted escalation as stored by the intake service.
type Record struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
	Request
}
