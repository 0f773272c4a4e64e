package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
	"github.com/campus-sarthi/sarthi/backend/internal/service/answer"
)

type fakeAnswerer struct {
	calls int
	last  answer.Query
	reply answer.Reply
	err   error
	block bool
}

func (f *fakeAnswerer) Name() string { return "fake" }

func (f *fakeAnswerer) Answer(ctx context.Context, q answer.Query) (answer.Reply, error) {
	f.calls++
	f.last = q
	if f.block {
		<-ctx.Done()
		return answer.Reply{}, ctx.Err()
	}
	return f.reply, f.err
}

type mapTranscripts map[string]string

func (m mapTranscripts) Transcript(url string) (string, bool) {
	t, ok := m[url]
	return t, ok
}

func TestQueryRejectsEmptyBeforeUpstream(t *testing.T) {
	fake := &fakeAnswerer{}
	svc := NewService(fake, nil, Options{}, nil)

	_, err := svc.Query(context.Background(), chat.QueryRequest{Language: "en"})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, fake.calls)
}

func TestQueryWhitespaceTextGetsFallback(t *testing.T) {
	svc := NewService(answer.NewKeywordAnswerer(), nil, Options{}, nil)

	resp, err := svc.Query(context.Background(), chat.QueryRequest{SessionID: "s", Text: "   "})
	require.NoError(t, err)
	assert.Equal(t, 65, resp.Confidence)
	assert.Empty(t, resp.Sources)
}

func TestQueryMockKeywords(t *testing.T) {
	svc := NewService(answer.NewKeywordAnswerer(), nil, Options{VoiceFallbackText: "default"}, nil)
	ctx := context.Background()

	resp, err := svc.Query(ctx, chat.QueryRequest{SessionID: "s-1", Text: "Library hours?", Modality: chat.ModalityText})
	require.NoError(t, err)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, 95, resp.Confidence)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "Library Guidelines", resp.Sources[0].Title)

	resp, err = svc.Query(ctx, chat.QueryRequest{SessionID: "s-1", Text: "any good food nearby"})
	require.NoError(t, err)
	assert.Equal(t, 92, resp.Confidence)

	resp, err = svc.Query(ctx, chat.QueryRequest{SessionID: "s-1", Text: "parking permits"})
	require.NoError(t, err)
	assert.Equal(t, 65, resp.Confidence)
	assert.Empty(t, resp.Sources)

	resp, err = svc.Query(ctx, chat.QueryRequest{SessionID: "s-1", AudioURL: "/audio/1.webm", Modality: chat.ModalityVoice})
	require.NoError(t, err)
	assert.Equal(t, 65, resp.Confidence)
}

func TestQueryGeneratesSessionAndLanguage(t *testing.T) {
	fake := &fakeAnswerer{reply: answer.Reply{Answer: "ok", Confidence: 70}}
	svc := NewService(fake, nil, Options{DefaultLanguage: "pa"}, nil)

	resp, err := svc.Query(context.Background(), chat.QueryRequest{Text: "hi"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.SessionID, "session-"))
	assert.Equal(t, "pa", fake.last.Language)
	assert.NotNil(t, resp.Sources)
}

func TestQueryDegradesOnBackendFailure(t *testing.T) {
	fake := &fakeAnswerer{err: errors.New("connection refused")}
	svc := NewService(fake, nil, Options{}, nil)

	resp, err := svc.Query(context.Background(), chat.QueryRequest{SessionID: "s", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, degradedConfidence, resp.Confidence)
	assert.Equal(t, unavailableAnswer, resp.Answer)
	assert.Equal(t, chat.BandNegative, chat.BandFor(resp.Confidence))
	assert.Empty(t, resp.Sources)
}

func TestQueryDegradesOnTimeout(t *testing.T) {
	fake := &fakeAnswerer{block: true}
	svc := NewService(fake, nil, Options{Timeout: 20 * time.Millisecond}, nil)

	resp, err := svc.Query(context.Background(), chat.QueryRequest{SessionID: "s", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, unavailableAnswer, resp.Answer)
}

func TestQueryClampsConfidence(t *testing.T) {
	fake := &fakeAnswerer{reply: answer.Reply{Answer: "sure", Confidence: 180}}
	svc := NewService(fake, nil, Options{}, nil)

	resp, err := svc.Query(context.Background(), chat.QueryRequest{SessionID: "s", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Confidence)
}

func TestQueryVoiceUsesTranscript(t *testing.T) {
	fake := &fakeAnswerer{reply: answer.Reply{Answer: "ok", Confidence: 90}}
	svc := NewService(fake, mapTranscripts{"/audio/1.webm": "where is the library"}, Options{}, nil)

	_, err := svc.Query(context.Background(), chat.QueryRequest{SessionID: "s", AudioURL: "/audio/1.webm"})
	require.NoError(t, err)
	assert.Equal(t, "where is the library", fake.last.Text)

	resp, err := svc.Query(context.Background(), chat.QueryRequest{SessionID: "s", AudioURL: "/audio/unknown.webm"})
	require.NoError(t, err)
	assert.Equal(t, unheardAnswer, resp.Answer)
	assert.Equal(t, 1, fake.calls)
}
