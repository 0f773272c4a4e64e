package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

type fixedSession string

func (f fixedSession) GetOrCreateSessionID() string { return string(f) }

type call struct {
	req     chat.QueryRequest
	release chan struct{}
}

// scriptedGateway answers "answer:<text>" once a call is released, or at
// once when auto is set.
type scriptedGateway struct {
	mu    sync.Mutex
	calls []*call
	seen  chan chat.QueryRequest
	auto  bool
	err   error
	conf  int
}

func newGateway(auto bool) *scriptedGateway {
	return &scriptedGateway{seen: make(chan chat.QueryRequest, 16), auto: auto, conf: 90}
}

func (g *scriptedGateway) Query(ctx context.Context, req chat.QueryRequest) (chat.QueryResponse, error) {
	c := &call{req: req, release: make(chan struct{})}
	g.mu.Lock()
	g.calls = append(g.calls, c)
	g.mu.Unlock()
	g.seen <- req

	if !g.auto {
		select {
		case <-c.release:
		case <-ctx.Done():
			return chat.QueryResponse{}, ctx.Err()
		}
	}
	if g.err != nil {
		return chat.QueryResponse{}, g.err
	}
	return chat.QueryResponse{SessionID: req.SessionID, Answer: "answer:" + req.Text, Confidence: g.conf, Sources: []chat.Source{}}, nil
}

func (g *scriptedGateway) release(i int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.calls[i].release)
}

func contents(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

func TestSendAppendsUserThenAssistant(t *testing.T) {
	gw := newGateway(true)
	c := NewCoordinator(gw, fixedSession("session-1"), "pa", nil)

	var changes atomic.Int32
	c.OnChange(func() { changes.Add(1) })

	require.NoError(t, c.Send(context.Background(), "library hours", ""))

	req := <-gw.seen
	assert.Equal(t, "session-1", req.SessionID)
	assert.Equal(t, "pa", req.Language)
	assert.Equal(t, chat.ModalityText, req.Modality)

	msgs := c.Messages()
	assert.Equal(t, []string{"user:library hours", "assistant:answer:library hours"}, contents(msgs))
	require.NotNil(t, msgs[1].Confidence)
	assert.Equal(t, 90, *msgs[1].Confidence)
	assert.False(t, c.Awaiting())
	assert.NoError(t, c.Err())
	assert.GreaterOrEqual(t, changes.Load(), int32(2))

	snap := c.Snapshot()
	assert.Equal(t, "session-1", snap.ID)
	assert.Equal(t, "pa", snap.Language)
	assert.Equal(t, msgs, snap.Messages)
	assertIDsIncrease(t, msgs)
}

func TestSendVoiceAndEmpty(t *testing.T) {
	gw := newGateway(true)
	c := NewCoordinator(gw, fixedSession("s"), "en", nil)

	require.NoError(t, c.Send(context.Background(), "", "/api/audio/1.webm"))
	req := <-gw.seen
	assert.Equal(t, chat.ModalityVoice, req.Modality)
	assert.Equal(t, "/api/audio/1.webm", req.AudioURL)

	require.NoError(t, c.Send(context.Background(), "", ""))
	<-gw.seen

	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Voice message", msgs[0].Content)
	assert.Equal(t, "/api/audio/1.webm", msgs[0].AudioURL)
	assert.Equal(t, chat.RoleUser, msgs[2].Role)
	assert.Equal(t, "", msgs[2].Content)
}

func TestSendFailureKeepsUserMessage(t *testing.T) {
	gw := newGateway(true)
	gw.err = errors.New("status 500")
	c := NewCoordinator(gw, fixedSession("s"), "en", nil)

	err := c.Send(context.Background(), "hello", "")
	require.Error(t, err)
	assert.Equal(t, []string{"user:hello"}, contents(c.Messages()))
	assert.Error(t, c.Err())
	assert.False(t, c.Awaiting())

	gw.err = nil
	require.NoError(t, c.Send(context.Background(), "again", ""))
	assert.NoError(t, c.Err())
}

func TestOverlappingSendsApplyInIssueOrder(t *testing.T) {
	gw := newGateway(false)
	c := NewCoordinator(gw, fixedSession("s"), "en", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = c.Send(context.Background(), "first", "") }()
	<-gw.seen
	go func() { defer wg.Done(); _ = c.Send(context.Background(), "second", "") }()
	<-gw.seen

	assert.Equal(t, []string{"user:first", "user:second"}, contents(c.Messages()))
	assert.True(t, c.Awaiting())

	gw.release(1)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, c.Messages(), 2)
	assert.True(t, c.Awaiting())

	gw.release(0)
	wg.Wait()

	assert.Equal(t, []string{
		"user:first", "user:second",
		"assistant:answer:first", "assistant:answer:second",
	}, contents(c.Messages()))
	assert.False(t, c.Awaiting())
	assertIDsIncrease(t, c.Messages())
}

func assertIDsIncrease(t *testing.T, msgs []chat.Message) {
	t.Helper()
	seen := make(map[string]bool, len(msgs))
	last := 0
	for i, m := range msgs {
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true

		parts := strings.Split(m.ID, "-")
		require.Len(t, parts, 3, "id %s", m.ID)
		seq, err := strconv.Atoi(parts[2])
		require.NoError(t, err)
		assert.Greater(t, seq, last, "message %d (%s) is out of order", i, m.ID)
		last = seq
	}
}

func TestClearDropsInFlightReply(t *testing.T) {
	gw := newGateway(false)
	c := NewCoordinator(gw, fixedSession("s"), "en", nil)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello", "") }()
	<-gw.seen

	c.Clear()
	assert.Empty(t, c.Messages())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStaleReply)
	case <-time.After(time.Second):
		t.Fatal("send did not finish after clear")
	}
	assert.Empty(t, c.Messages())
	assert.False(t, c.Awaiting())

	gw.auto = true
	require.NoError(t, c.Send(context.Background(), "after", ""))
	assert.Equal(t, "s", (<-gw.seen).SessionID)
	assert.Len(t, c.Messages(), 2)
}

func TestCloseCancelsAndRejects(t *testing.T) {
	gw := newGateway(false)
	c := NewCoordinator(gw, fixedSession("s"), "en", nil)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello", "") }()
	<-gw.seen

	c.Close()
	c.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStaleReply)
	case <-time.After(time.Second):
		t.Fatal("close did not cancel the request")
	}
	assert.ErrorIs(t, c.Send(context.Background(), "more", ""), ErrClosed)
	assert.Equal(t, []string{"user:hello"}, contents(c.Messages()))
}

func TestNeedsEscalation(t *testing.T) {
	gw := newGateway(true)
	c := NewCoordinator(gw, fixedSession("s"), "en", nil)
	assert.False(t, c.NeedsEscalation())

	gw.conf = 45
	require.NoError(t, c.Send(context.Background(), "register", ""))
	assert.True(t, c.NeedsEscalation())

	gw.conf = 60
	require.NoError(t, c.Send(context.Background(), "register", ""))
	assert.False(t, c.NeedsEscalation())
}
