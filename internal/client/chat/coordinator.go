// Package chat coordinates one chat session on the client: the optimistic
// transcript, the in-flight query state and the reply ordering.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

var (
	ErrClosed     = errors.New("chat coordinator closed")
	ErrStaleReply = errors.New("reply arrived after the conversation was cleared")
)

const voicePlaceholder = "Voice message"

// Gateway answers chat queries.
type Gateway interface {
	Query(ctx context.Context, req chat.QueryRequest) (chat.QueryResponse, error)
}

// SessionIDs supplies the persisted session identifier.
type SessionIDs interface {
	GetOrCreateSessionID() string
}

// Coordinator owns the message list of one chat surface. Sends run
// concurrently; replies are applied in the order the sends were issued.
type Coordinator struct {
	gateway  Gateway
	sessions SessionIDs
	now      func() time.Time
	log      *logger.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	language string
	messages []chat.Message
	inFlight int
	err      error
	seq      int
	onChange func()

	nextTicket uint64
	applied    uint64
	epoch      uint64
	base       context.Context
	cancelBase context.CancelFunc
	closed     bool
}

func NewCoordinator(gateway Gateway, sessions SessionIDs, language string, log *logger.Logger) *Coordinator {
	c := &Coordinator{
		gateway:  gateway,
		sessions: sessions,
		language: language,
		now:      time.Now,
		log:      logger.OrNop(log).With("component", "chat_coordinator"),
	}
	c.cond = sync.NewCond(&c.mu)
	c.base, c.cancelBase = context.WithCancel(context.Background())
	return c
}

// OnChange registers a callback invoked after every change to the visible
// state. It runs on the goroutine that made the change.
func (c *Coordinator) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Coordinator) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
}

// Messages returns a copy of the transcript.
func (c *Coordinator) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.messages...)
}

// Snapshot returns the conversation as it stands, under the persisted
// session ID.
func (c *Coordinator) Snapshot() chat.Session {
	id := c.sessions.GetOrCreateSessionID()
	c.mu.Lock()
	defer c.mu.Unlock()
	return chat.Session{
		ID:       id,
		Language: c.language,
		Messages: append([]chat.Message(nil), c.messages...),
	}
}

// Awaiting reports whether any query is still in flight.
func (c *Coordinator) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Err returns the error of the most recent failed send, cleared by the next
// send or Clear.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// NeedsEscalation reports whether the latest reply scored in the negative
// band.
func (c *Coordinator) NeedsEscalation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		m := c.messages[i]
		if m.Role != chat.RoleAssistant {
			continue
		}
		return m.HasConfidence() && chat.BandFor(*m.Confidence) == chat.BandNegative
	}
	return false
}

// Send appends the user message at once, queries the gateway and appends the
// reply. An all-empty call still appends an empty user message and issues
// the query. Send blocks until its reply has been applied or dropped.
func (c *Coordinator) Send(ctx context.Context, text, audioURL string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	content := text
	if content == "" && audioURL != "" {
		content = voicePlaceholder
	}
	id := c.nextIDLocked()
	c.messages = append(c.messages, chat.Message{
		ID:        id,
		Role:      chat.RoleUser,
		Content:   content,
		CreatedAt: c.now(),
		AudioURL:  audioURL,
	})
	c.inFlight++
	c.err = nil

	ticket := c.nextTicket
	c.nextTicket++
	epoch := c.epoch
	base := c.base
	req := chat.QueryRequest{
		SessionID: c.sessions.GetOrCreateSessionID(),
		Text:      text,
		AudioURL:  audioURL,
		Language:  c.language,
		Modality:  chat.ModalityFor(text),
	}
	c.mu.Unlock()
	c.changed()

	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(base, cancel)
	resp, err := c.gateway.Query(reqCtx, req)
	stop()
	cancel()

	c.mu.Lock()
	for c.applied != ticket {
		c.cond.Wait()
	}
	c.applied++
	c.inFlight--
	c.cond.Broadcast()

	if epoch != c.epoch {
		c.mu.Unlock()
		c.log.Debug("dropping stale reply", "message_id", id)
		c.changed()
		return ErrStaleReply
	}

	if err != nil {
		sendErr := fmt.Errorf("send message: %w", err)
		c.err = sendErr
		c.mu.Unlock()
		c.log.Warn("chat query failed", "session_id", req.SessionID, "error", err)
		c.changed()
		return sendErr
	}

	confidence := chat.ClampConfidence(resp.Confidence)
	c.messages = append(c.messages, chat.Message{
		ID:          c.nextIDLocked(),
		Role:        chat.RoleAssistant,
		Content:     resp.Answer,
		CreatedAt:   c.now(),
		Confidence:  &confidence,
		Sources:     resp.Sources,
		Suggestions: resp.Suggestions,
	})
	c.mu.Unlock()
	c.changed()
	return nil
}

// Clear empties the transcript and drops replies still in flight. The
// session identifier is untouched.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.err = nil
	c.resetEpochLocked()
	c.mu.Unlock()
	c.changed()
}

// Close cancels in-flight queries and rejects further sends.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.cancelBase()
	c.mu.Unlock()
}

// nextIDLocked stamps a message ID. The sequence only grows, so IDs follow
// the order messages were appended.
func (c *Coordinator) nextIDLocked() string {
	c.seq++
	return "msg-" + strconv.FormatInt(c.now().UnixMilli(), 10) + "-" + strconv.Itoa(c.seq)
}

func (c *Coordinator) resetEpochLocked() {
	c.epoch++
	c.cancelBase()
	c.base, c.cancelBase = context.WithCancel(context.Background())
}

func (c *Coordinator) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
