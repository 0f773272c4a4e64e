package voice

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
)

// RecorderState of an AudioRecorder.
type RecorderState string

const (
	RecorderIdle      RecorderState = "idle"
	RecorderRecording RecorderState = "recording"
)

// CaptureDevice opens an audio input stream.
type CaptureDevice interface {
	Open(ctx context.Context) (stream io.ReadCloser, mimeType string, err error)
}

// Clip is one finished recording.
type Clip struct {
	Ref      string
	MimeType string
	Data     []byte
	Duration time.Duration
}

// AudioRecorder buffers one device stream into a single clip.
type AudioRecorder struct {
	device CaptureDevice
	now    func() time.Time
	log    *logger.Logger

	mu         sync.Mutex
	state      RecorderState
	onComplete func(Clip)
	stream     io.ReadCloser
	mimeType   string
	started    time.Time
	buf        *bytes.Buffer
	done       chan struct{}
}

func NewAudioRecorder(device CaptureDevice, log *logger.Logger) *AudioRecorder {
	return &AudioRecorder{
		device: device,
		now:    time.Now,
		state:  RecorderIdle,
		log:    logger.OrNop(log).With("component", "recorder"),
	}
}

func (a *AudioRecorder) State() RecorderState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnComplete registers the receiver of finished clips.
func (a *AudioRecorder) OnComplete(fn func(Clip)) {
	a.mu.Lock()
	a.onComplete = fn
	a.mu.Unlock()
}

// Start opens the device. A missing or failing device leaves the recorder
// idle.
func (a *AudioRecorder) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == RecorderRecording {
		return
	}
	if a.device == nil {
		a.log.Debug("no capture device")
		return
	}

	stream, mimeType, err := a.device.Open(ctx)
	if err != nil {
		a.log.Warn("capture device failed to open", "error", err)
		return
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	a.stream = stream
	a.mimeType = mimeType
	a.started = a.now()
	a.buf = &bytes.Buffer{}
	a.done = make(chan struct{})
	a.state = RecorderRecording

	go func(buf *bytes.Buffer, done chan struct{}) {
		defer close(done)
		if _, err := io.Copy(buf, stream); err != nil {
			a.log.Debug("capture stream ended", "error", err)
		}
	}(a.buf, a.done)
}

// Stop closes the device and hands the clip to the OnComplete callback. It
// returns false when nothing was recording.
func (a *AudioRecorder) Stop() (Clip, bool) {
	a.mu.Lock()
	if a.state != RecorderRecording {
		a.mu.Unlock()
		return Clip{}, false
	}
	stream, done, buf := a.stream, a.done, a.buf
	clip := Clip{
		Ref:      uuid.NewString(),
		MimeType: a.mimeType,
		Duration: a.now().Sub(a.started),
	}
	a.stream, a.buf, a.done = nil, nil, nil
	a.state = RecorderIdle
	cb := a.onComplete
	a.mu.Unlock()

	if err := stream.Close(); err != nil {
		a.log.Debug("capture device close failed", "error", err)
	}
	<-done
	clip.Data = buf.Bytes()

	if cb != nil {
		cb(clip)
	}
	return clip, true
}
