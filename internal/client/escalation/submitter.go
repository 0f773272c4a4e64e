// Package escalation submits "talk to a person" requests from the chat
// client.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/escalation"
)

var ErrReasonRequired = errors.New("please describe what you need help with")

// State of the latest submission.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Sender delivers an escalation request.
type Sender interface {
	Escalate(ctx context.Context, req model.Request) error
}

// SessionIDs supplies the persisted session identifier.
type SessionIDs interface {
	GetOrCreateSessionID() string
}

// Submitter sends one escalation per call. It neither retries nor
// deduplicates.
type Submitter struct {
	sender   Sender
	sessions SessionIDs
	language func() string
	log      *logger.Logger

	mu    sync.Mutex
	state State
	err   error
}

// NewSubmitter builds a submitter. language is read at submission time.
func NewSubmitter(sender Sender, sessions SessionIDs, language func() string, log *logger.Logger) *Submitter {
	return &Submitter{
		sender:   sender,
		sessions: sessions,
		language: language,
		state:    StateIdle,
		log:      logger.OrNop(log).With("component", "escalation_submitter"),
	}
}

func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submitter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Submit asks for a human. A blank reason is rejected without contacting the
// server.
func (s *Submitter) Submit(ctx context.Context, reason, contact string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		s.finish(StateError, ErrReasonRequired)
		return ErrReasonRequired
	}

	req := model.Request{
		SessionID: s.sessions.GetOrCreateSessionID(),
		Message:   reason,
		Reason:    model.ReasonUserRequest,
		Contact:   strings.TrimSpace(contact),
	}
	if s.language != nil {
		req.Language = s.language()
	}

	s.finish(StatePending, nil)
	if err := s.sender.Escalate(ctx, req); err != nil {
		wrapped := fmt.Errorf("submit escalation: %w", err)
		s.log.Warn("escalation failed", "session_id", req.SessionID, "error", err)
		s.finish(StateError, wrapped)
		return wrapped
	}

	s.log.Info("escalation submitted", "session_id", req.SessionID)
	s.finish(StateSuccess, nil)
	return nil
}

func (s *Submitter) finish(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.err = err
	s.mu.Unlock()
}
