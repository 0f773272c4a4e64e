package widget

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sarthi/sarthi/backend/internal/widget"
)

func setupServer(t *testing.T) *httptest.Server {
	srv, _ := setupServerWithHub(t)
	return srv
}

func setupServerWithHub(t *testing.T) (*httptest.Server, *widget.Hub) {
	t.Helper()
	supported := func(l string) bool { return l == "en" || l == "pa" }
	hub := widget.NewHub(nil)
	h := New(hub, "https://sarthi.example", widget.NewOriginPolicy([]string{"https://college.example"}), supported, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, query string, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/widget/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) widget.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg widget.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestConfigEndpoint(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/widget/config?apiKey=k&lang=pa&theme=dark")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		EmbedURL string        `json:"embedUrl"`
		Config   widget.Config `json:"config"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "https://sarthi.example/widget/embed?apiKey=k&lang=pa&theme=dark", body.EmbedURL)
	assert.Equal(t, "dark", body.Config.Theme)

	resp2, err := http.Get(srv.URL + "/widget/config?lang=fr")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestReadyHandshakeAndRelay(t *testing.T) {
	srv, hub := setupServerWithHub(t)
	host := dial(t, srv, "instance=w1&role=host&apiKey=k&theme=dark", "https://college.example")
	frame := dial(t, srv, "instance=w1&role=frame&lang=en", "")

	require.Eventually(t, func() bool {
		cfg, ok := hub.Config("w1")
		return ok && cfg.APIKey == "k"
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, frame.WriteJSON(widget.Message{Type: widget.KindReady}))

	cfg := readMessage(t, frame)
	assert.Equal(t, widget.KindConfig, cfg.Type)
	require.NotNil(t, cfg.Config)
	assert.Equal(t, "k", cfg.Config.APIKey)
	assert.Equal(t, "dark", cfg.Config.Theme)

	ready := readMessage(t, host)
	assert.Equal(t, widget.KindReady, ready.Type)

	require.NoError(t, frame.WriteJSON(widget.Message{Type: widget.KindResize, Width: "320px", Height: "480px"}))
	resize := readMessage(t, host)
	assert.Equal(t, "320px", resize.Width)
}

func TestUnknownKindIsRejected(t *testing.T) {
	srv := setupServer(t)
	frame := dial(t, srv, "instance=w2&role=frame", "")

	require.NoError(t, frame.WriteMessage(websocket.TextMessage, []byte(`{"type":"CAMPUS_SARTHI_CONFIG","config":{}}`)))
	require.NoError(t, frame.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply map[string]string
	require.NoError(t, frame.ReadJSON(&reply))
	assert.Equal(t, "message kind not allowed from this side", reply["error"])
}

func TestForeignOriginRejected(t *testing.T) {
	srv := setupServer(t)
	header := http.Header{"Origin": {"https://evil.example"}}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/widget/ws?instance=w3&role=host"
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMissingRole(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/widget/ws?instance=w4")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
