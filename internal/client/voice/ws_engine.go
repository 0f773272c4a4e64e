package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/speech"
)

const defaultChunkSize = 3200

// AudioSource opens the microphone stream for one recognition session.
type AudioSource func(ctx context.Context) (io.ReadCloser, error)

// WSEngine streams audio to a websocket recognition endpoint and reads back
// JSON frames of the form {text, isFinal, error}.
type WSEngine struct {
	URL       string
	Source    AudioSource
	Dialer    *websocket.Dialer
	ChunkSize int
	Log       *logger.Logger
}

func (e *WSEngine) Supported() bool {
	return e != nil && e.URL != "" && e.Source != nil
}

func (e *WSEngine) Start(ctx context.Context, locale string) (<-chan Hypothesis, error) {
	if !e.Supported() {
		return nil, ErrUnsupported
	}
	log := logger.OrNop(e.Log).With("component", "ws_engine")

	u, err := url.Parse(e.URL)
	if err != nil {
		return nil, fmt.Errorf("parse recognition url: %w", err)
	}
	q := u.Query()
	q.Set("lang", locale)
	u.RawQuery = q.Encode()

	dialer := e.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial recognition endpoint: %w", err)
	}

	audio, err := e.Source(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open audio source: %w", err)
	}

	chunk := e.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}

	out := make(chan Hypothesis)
	go func() {
		<-ctx.Done()
		audio.Close()
		conn.Close()
	}()
	go e.pump(ctx, conn, audio, chunk, log)
	go e.read(ctx, conn, out)
	return out, nil
}

func (e *WSEngine) pump(ctx context.Context, conn *websocket.Conn, audio io.Reader, chunk int, log *logger.Logger) {
	buf := make([]byte, chunk)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"end"}`))
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("audio source read failed", "error", err)
			}
			return
		}
	}
}

func (e *WSEngine) read(ctx context.Context, conn *websocket.Conn, out chan<- Hypothesis) {
	defer close(out)
	for {
		var frame speech.RecognitionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				e.send(ctx, out, Hypothesis{Err: err})
			}
			return
		}

		h := Hypothesis{Text: frame.Text, Final: frame.IsFinal}
		if frame.Error != "" {
			h = Hypothesis{Err: errors.New(frame.Error)}
		}
		if !e.send(ctx, out, h) || h.Err != nil {
			return
		}
	}
}

func (e *WSEngine) send(ctx context.Context, out chan<- Hypothesis, h Hypothesis) bool {
	select {
	case out <- h:
		return true
	case <-ctx.Done():
		return false
	}
}
