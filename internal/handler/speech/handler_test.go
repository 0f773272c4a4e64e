package speech

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sarthi/sarthi/backend/internal/model/speech"
)

type recordingTranscriber struct {
	got  speech.TranscribeRequest
	data []byte
	err  error
}

func (r *recordingTranscriber) Transcribe(_ context.Context, req *speech.TranscribeRequest) (*speech.Transcript, error) {
	r.got = *req
	r.data, _ = io.ReadAll(req.AudioData)
	if r.err != nil {
		return nil, r.err
	}
	return &speech.Transcript{Text: "where is the library"}, nil
}

func dial(t *testing.T, tr *recordingTranscriber, query string) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	New(tr, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/speech/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRecognizeUtterance(t *testing.T) {
	tr := &recordingTranscriber{}
	conn := dial(t, tr, "?lang=pa-IN")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("abc")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("def")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"end"}`)))

	var frame speech.RecognitionFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, speech.RecognitionFrame{Text: "where is the library", IsFinal: true}, frame)
	assert.Equal(t, "pa", tr.got.Language)
	assert.Equal(t, "pcm", tr.got.Format)
	assert.Equal(t, "abcdef", string(tr.data))
}

func TestRecognizeWithoutAudio(t *testing.T) {
	conn := dial(t, &recordingTranscriber{}, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"end"}`)))

	var frame speech.RecognitionFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "no audio received", frame.Error)
}

func TestRecognizeTranscriberFailure(t *testing.T) {
	conn := dial(t, &recordingTranscriber{err: errors.New("backend down")}, "?format=wav")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("abc")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"end"}`)))

	var frame speech.RecognitionFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "transcription failed", frame.Error)
	assert.False(t, frame.IsFinal)
}

func TestUnknownControlFrame(t *testing.T) {
	conn := dial(t, &recordingTranscriber{}, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"pause"}`)))

	var frame speech.RecognitionFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "unsupported control frame", frame.Error)
}

func TestPrimaryLanguage(t *testing.T) {
	assert.Equal(t, "te", primaryLanguage("te-IN"))
	assert.Equal(t, "en", primaryLanguage("EN"))
	assert.Equal(t, "", primaryLanguage(""))
}
