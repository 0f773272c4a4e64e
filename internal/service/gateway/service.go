package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
	"github.com/campus-sarthi/sarthi/backend/internal/service/answer"
)

var ErrEmptyQuery = errors.New("either text or audioUrl is required")

const (
	degradedConfidence = 20

	unavailableAnswer = "I'm sorry, I can't reach the campus knowledge base right now. Please try again in a moment, or ask to speak with a person."
	unheardAnswer     = "I'm sorry, I couldn't understand that voice message. Could you type your question instead?"
)

var degradedSuggestions = []string{"Talk to a person"}

// TranscriptLookup resolves the transcript of a previously uploaded clip.
type TranscriptLookup interface {
	Transcript(audioURL string) (string, bool)
}

// Options tune the gateway.
type Options struct {
	DefaultLanguage string
	Timeout         time.Duration
	// VoiceFallbackText is answered for voice-only queries with no known
	// transcript. Empty means such queries get the degraded answer.
	VoiceFallbackText string
}

// Service validates chat queries, forwards them to the answer backend and
// normalizes whatever comes back into a QueryResponse.
type Service struct {
	answerer    answer.Answerer
	transcripts TranscriptLookup
	opts        Options
	log         *logger.Logger
}

// NewService wires the gateway. transcripts may be nil.
func NewService(answerer answer.Answerer, transcripts TranscriptLookup, opts Options, log *logger.Logger) *Service {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	return &Service{
		answerer:    answerer,
		transcripts: transcripts,
		opts:        opts,
		log:         logger.OrNop(log).With("component", "gateway", "backend", answerer.Name()),
	}
}

// Query answers one chat query. The only error it returns is ErrEmptyQuery;
// backend failures become a low-confidence apology.
func (s *Service) Query(ctx context.Context, req chat.QueryRequest) (chat.QueryResponse, error) {
	if req.Empty() {
		return chat.QueryResponse{}, ErrEmptyQuery
	}
	req.AudioURL = strings.TrimSpace(req.AudioURL)

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = chat.NewSessionID()
	}
	language := req.Language
	if language == "" {
		language = s.opts.DefaultLanguage
	}

	text, ok := s.resolveText(req)
	if !ok {
		s.log.Info("voice query without transcript", "session_id", sessionID, "audioUrl", req.AudioURL)
		return degraded(sessionID, unheardAnswer), nil
	}

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	reply, err := s.answerer.Answer(callCtx, answer.Query{SessionID: sessionID, Text: text, Language: language})
	if err != nil {
		s.log.Warn("answer backend failed", "session_id", sessionID, "elapsed", time.Since(started), "error", err)
		return degraded(sessionID, unavailableAnswer), nil
	}

	sources := reply.Sources
	if sources == nil {
		sources = []chat.Source{}
	}
	s.log.Debug("query answered", "session_id", sessionID, "modality", req.Modality, "confidence", reply.Confidence, "elapsed", time.Since(started))

	return chat.QueryResponse{
		SessionID:   sessionID,
		Answer:      reply.Answer,
		Confidence:  chat.ClampConfidence(reply.Confidence),
		Sources:     sources,
		Suggestions: reply.Suggestions,
	}, nil
}

func (s *Service) resolveText(req chat.QueryRequest) (string, bool) {
	if text := strings.TrimSpace(req.Text); text != "" {
		return text, true
	}
	if req.AudioURL == "" {
		// Whitespace-only text is still a text query.
		return req.Text, true
	}
	if s.transcripts != nil {
		if transcript, ok := s.transcripts.Transcript(req.AudioURL); ok && strings.TrimSpace(transcript) != "" {
			return transcript, true
		}
	}
	if s.opts.VoiceFallbackText != "" {
		return s.opts.VoiceFallbackText, true
	}
	return "", false
}

func degraded(sessionID, answerText string) chat.QueryResponse {
	return chat.QueryResponse{
		SessionID:   sessionID,
		Answer:      answerText,
		Confidence:  degradedConfidence,
		Sources:     []chat.Source{},
		Suggestions: append([]string(nil), degradedSuggestions...),
	}
}
