// Package voice adapts speech capture for the chat client: a speech
// recognizer over a pluggable engine and a recorder that buffers one clip.
package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
)

// ErrUnsupported is returned by engines that cannot recognize speech here.
var ErrUnsupported = errors.New("speech recognition unsupported")

// State of a Recognizer.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

// Hypothesis is one recognition result. Err ends the session.
type Hypothesis struct {
	Text  string
	Final bool
	Err   error
}

// RecognitionEngine runs one recognition session per Start. The engine closes
// the channel when the session ends or ctx is cancelled.
type RecognitionEngine interface {
	Supported() bool
	Start(ctx context.Context, locale string) (<-chan Hypothesis, error)
}

var locales = map[string]string{
	"en": "en-US",
	"pa": "pa-IN",
	"te": "te-IN",
	"bn": "bn-IN",
}

// LocaleFor maps a language code to a recognition locale.
func LocaleFor(lang string) string {
	if l, ok := locales[lang]; ok {
		return l
	}
	return lang
}

// Recognizer turns engine sessions into final transcripts. Its locale is
// fixed at construction.
type Recognizer struct {
	engine RecognitionEngine
	locale string
	log    *logger.Logger

	mu         sync.Mutex
	state      State
	transcript string
	onResult   func(string)
	cancel     context.CancelFunc
	gen        uint64
}

func NewRecognizer(engine RecognitionEngine, lang string, log *logger.Logger) *Recognizer {
	return &Recognizer{
		engine: engine,
		locale: LocaleFor(lang),
		state:  StateIdle,
		log:    logger.OrNop(log).With("component", "recognizer"),
	}
}

func (r *Recognizer) Supported() bool {
	return r.engine != nil && r.engine.Supported()
}

func (r *Recognizer) Locale() string { return r.locale }

func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Transcript is the latest final hypothesis.
func (r *Recognizer) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript
}

// OnResult registers the callback that receives each final transcript.
func (r *Recognizer) OnResult(fn func(string)) {
	r.mu.Lock()
	r.onResult = fn
	r.mu.Unlock()
}

// Start begins listening and clears the previous transcript. It is a no-op
// while already listening or when recognition is unsupported.
func (r *Recognizer) Start() {
	if !r.Supported() {
		r.log.Debug("speech recognition not supported")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateListening {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	results, err := r.engine.Start(ctx, r.locale)
	if err != nil {
		cancel()
		r.log.Warn("speech recognition failed to start", "locale", r.locale, "error", err)
		return
	}

	r.gen++
	r.cancel = cancel
	r.state = StateListening
	r.transcript = ""
	go r.consume(r.gen, results)
}

// Stop ends listening. It is a no-op when idle.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Recognizer) stopLocked() {
	if r.state != StateListening {
		return
	}
	r.cancel()
	r.cancel = nil
	r.state = StateIdle
}

func (r *Recognizer) consume(gen uint64, results <-chan Hypothesis) {
	for h := range results {
		if h.Err != nil {
			r.log.Warn("speech recognition error", "locale", r.locale, "error", h.Err)
			break
		}
		if !h.Final {
			continue
		}

		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			return
		}
		r.transcript = h.Text
		cb := r.onResult
		r.mu.Unlock()

		if cb != nil {
			cb(h.Text)
		}
	}

	r.mu.Lock()
	if r.gen == gen {
		r.stopLocked()
	}
	r.mu.Unlock()
}

// NopEngine is the engine of environments without speech recognition.
type NopEngine struct{}

func (NopEngine) Supported() bool { return false }

func (NopEngine) Start(context.Context, string) (<-chan Hypothesis, error) {
	return nil, ErrUnsupported
}
