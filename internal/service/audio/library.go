package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/speech"
)

var (
	ErrEmptyClip    = errors.New("audio file is required")
	ErrClipNotFound = errors.New("audio clip not found")
)

// URLPrefix is where stored clips are served from.
const URLPrefix = "/api/audio/"

// Transcriber turns an uploaded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req *speech.TranscribeRequest) (*speech.Transcript, error)
}

// StaticTranscriber returns the same text for every clip. It stands in for a
// speech-to-text backend.
type StaticTranscriber struct {
	Text string
}

func (s StaticTranscriber) Transcribe(_ context.Context, req *speech.TranscribeRequest) (*speech.Transcript, error) {
	return &speech.Transcript{SessionID: req.SessionID, Text: s.Text, CreatedAt: time.Now().UTC()}, nil
}

// Clip is an uploaded recording.
type Clip struct {
	Name       string
	Format     string
	Data       []byte
	Transcript string
	StoredAt   time.Time
}

// Library keeps uploaded clips in memory, keyed by their public URL.
type Library struct {
	mu          sync.RWMutex
	clips       map[string]*Clip
	seq         int
	transcriber Transcriber
	now         func() time.Time
	log         *logger.Logger
}

// NewLibrary builds a library. A nil transcriber leaves transcripts empty.
func NewLibrary(transcriber Transcriber, log *logger.Logger) *Library {
	return &Library{
		clips:       make(map[string]*Clip),
		transcriber: transcriber,
		now:         time.Now,
		log:         logger.OrNop(log).With("component", "audio"),
	}
}

// Store saves a clip and returns the upload response. Transcription errors
// leave the transcript empty; they never fail the upload.
func (l *Library) Store(ctx context.Context, sessionID, format, language string, r io.Reader) (speech.UploadResponse, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return speech.UploadResponse{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return speech.UploadResponse{}, ErrEmptyClip
	}
	if format == "" {
		format = "webm"
	}

	l.mu.Lock()
	l.seq++
	name := strconv.FormatInt(l.now().UnixMilli(), 10) + "-" + strconv.Itoa(l.seq) + "." + format
	l.mu.Unlock()

	clip := &Clip{Name: name, Format: format, Data: data, StoredAt: l.now().UTC()}

	if l.transcriber != nil {
		tr, err := l.transcriber.Transcribe(ctx, &speech.TranscribeRequest{
			SessionID: sessionID,
			AudioData: bytes.NewReader(data),
			Format:    format,
			Language:  language,
		})
		if err != nil {
			l.log.Warn("transcription failed", "clip", name, "error", err)
		} else {
			clip.Transcript = tr.Text
		}
	}

	l.mu.Lock()
	l.clips[name] = clip
	l.mu.Unlock()

	l.log.Info("audio upload received", "clip", name, "bytes", len(data), "session_id", sessionID)
	return speech.UploadResponse{OK: true, AudioURL: URLPrefix + name, Transcript: clip.Transcript}, nil
}

// Get returns the clip stored under name.
func (l *Library) Get(name string) (*Clip, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	clip, ok := l.clips[name]
	if !ok {
		return nil, ErrClipNotFound
	}
	return clip, nil
}

// Transcript resolves the transcript for a clip URL returned by Store.
func (l *Library) Transcript(audioURL string) (string, bool) {
	clip, err := l.Get(path.Base(audioURL))
	if err != nil || clip.Transcript == "" {
		return "", false
	}
	return clip.Transcript, true
}

// InferFormat maps a file name to an audio format.
func InferFormat(filename string) string {
	switch ext := path.Ext(filename); ext {
	case ".mp3", ".wav", ".webm", ".m4a", ".aac", ".ogg":
		return ext[1:]
	default:
		return "webm"
	}
}
