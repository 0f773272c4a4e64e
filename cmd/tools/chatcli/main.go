// Command chatcli is a terminal front end for the campus assistant. It keeps
// the same device state a browser would (session id, language, admin token)
// in a local SQLite file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campus-sarthi/sarthi/backend/internal/client/api"
	"github.com/campus-sarthi/sarthi/backend/internal/client/chat"
	"github.com/campus-sarthi/sarthi/backend/internal/client/escalation"
	"github.com/campus-sarthi/sarthi/backend/internal/client/kv"
	"github.com/campus-sarthi/sarthi/backend/internal/client/session"
	"github.com/campus-sarthi/sarthi/backend/internal/client/voice"
	"github.com/campus-sarthi/sarthi/backend/internal/config"
	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	chatmodel "github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

const helpText = `commands:
  /reset              start a new conversation
  /save <file>        write the conversation as JSON
  /lang <code>        switch language
  /escalate <reason>  ask for a human
  /voice <file>       send a recorded clip
  /record, /stop      capture from the -mic source and send it
  /listen             dictate a message from the -mic source
  /login <token>      store an admin token
  /logout             forget the admin token
  /quit               exit`

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "no .env file, using process environment: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	apiHost := flag.String("api", cfg.Client.APIHost, "backend base URL")
	storePath := flag.String("store", cfg.Client.StorePath, "device storage file")
	micPath := flag.String("mic", "", "file standing in for the microphone (raw audio)")
	timeout := flag.Duration("timeout", 45*time.Second, "per-request timeout")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	log := logger.Nop()
	if *verbose {
		if log, err = logger.New(cfg.Log.Mode); err != nil {
			fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		zap.ReplaceGlobals(log.SugaredLogger.Desugar())
	}

	var store kv.Store
	if sqlite, err := kv.OpenSQLite(*storePath); err != nil {
		log.Warn("device storage unavailable, state will not persist", "path", *storePath, "error", err)
	} else {
		defer sqlite.Close()
		store = sqlite
	}

	sessions := session.New(store, session.Options{
		DefaultLanguage:  cfg.Chat.DefaultLanguage,
		EnabledLanguages: cfg.Chat.EnabledLanguages,
	}, log)

	client := api.New(*apiHost, &http.Client{Timeout: *timeout}, log)
	coordinator := chat.NewCoordinator(client, sessions, sessions.PreferredLanguage(), log)
	defer coordinator.Close()

	r := &renderer{out: os.Stdout, coordinator: coordinator}
	coordinator.OnChange(r.render)

	submitter := escalation.NewSubmitter(client, sessions, sessions.PreferredLanguage, log)

	var engine voice.RecognitionEngine = voice.NopEngine{}
	if cfg.Client.ASRURL != "" && *micPath != "" {
		engine = &voice.WSEngine{URL: cfg.Client.ASRURL, Source: fileSource(*micPath), Log: log}
	}

	app := &app{
		client:      client,
		coordinator: coordinator,
		sessions:    sessions,
		submitter:   submitter,
		supports:    cfg.Chat.Supports,
		engine:      engine,
		recorder:    voice.NewAudioRecorder(micDevice(*micPath), log),
		timeout:     *timeout,
		log:         log,
	}
	app.resetRecognizer()

	fmt.Printf("campus sarthi (%s, session %s). /help for commands.\n", sessions.PreferredLanguage(), sessions.GetOrCreateSessionID())
	if err := app.loop(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "input error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	client      *api.Client
	coordinator *chat.Coordinator
	sessions    *session.Store
	submitter   *escalation.Submitter
	supports    func(string) bool
	engine      voice.RecognitionEngine
	recognizer  *voice.Recognizer
	recorder    *voice.AudioRecorder
	timeout     time.Duration
	log         *logger.Logger
}

func (a *app) loop(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			a.send(line, "")
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Println(helpText)
		case "/reset":
			a.sessions.ClearSession()
			a.coordinator.Clear()
			fmt.Printf("new session %s\n", a.sessions.GetOrCreateSessionID())
		case "/save":
			a.save(arg)
		case "/lang":
			a.setLanguage(arg)
		case "/escalate":
			a.escalate(arg)
		case "/voice":
			a.sendFile(arg)
		case "/record":
			a.recorder.Start(context.Background())
			if a.recorder.State() != voice.RecorderRecording {
				fmt.Println("no microphone available (use -mic)")
			}
		case "/stop":
			clip, ok := a.recorder.Stop()
			if !ok {
				fmt.Println("not recording")
				continue
			}
			a.sendClip("recording"+extensionFor(clip.MimeType), clip.Data)
		case "/listen":
			a.listen()
		case "/login":
			if !session.ValidateToken(arg) {
				fmt.Println("token required")
				continue
			}
			a.sessions.SetAdminToken(arg)
			fmt.Println("admin token stored")
		case "/logout":
			a.sessions.ClearAdminToken()
			fmt.Println("admin token cleared")
		default:
			fmt.Printf("unknown command %s\n", cmd)
		}
	}
}

func (a *app) send(text, audioURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	err := a.coordinator.Send(ctx, text, audioURL)
	switch {
	case err == nil:
		if a.coordinator.NeedsEscalation() {
			fmt.Println("(low confidence, type /escalate <reason> to reach a person)")
		}
	case errors.Is(err, chat.ErrStaleReply):
	default:
		fmt.Printf("error: %v\n", err)
	}
}

func (a *app) save(path string) {
	if path == "" {
		fmt.Println("usage: /save <file>")
		return
	}
	data, err := json.MarshalIndent(a.coordinator.Snapshot(), "", "  ")
	if err != nil {
		fmt.Printf("encode conversation: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("write conversation: %v\n", err)
		return
	}
	fmt.Printf("saved %d messages to %s\n", len(a.coordinator.Messages()), path)
}

func (a *app) setLanguage(code string) {
	code = strings.ToLower(code)
	if code == "" {
		fmt.Printf("language: %s\n", a.sessions.PreferredLanguage())
		return
	}
	if a.supports != nil && !a.supports(code) {
		fmt.Printf("language %q is not enabled\n", code)
		return
	}
	a.sessions.SetPreferredLanguage(code)
	a.coordinator.SetLanguage(code)
	a.resetRecognizer()
	fmt.Printf("language set to %s\n", code)
}

func (a *app) escalate(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.submitter.Submit(ctx, reason, ""); err != nil {
		fmt.Printf("escalation failed: %v\n", err)
		return
	}
	fmt.Println("a staff member will follow up")
}

func (a *app) sendFile(path string) {
	if path == "" {
		fmt.Println("usage: /voice <file>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("read clip: %v\n", err)
		return
	}
	a.sendClip(filepath.Base(path), data)
}

func (a *app) sendClip(filename string, data []byte) {
	if len(data) == 0 {
		fmt.Println("empty recording")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	resp, err := a.client.UploadAudio(ctx, filename, data, a.sessions.GetOrCreateSessionID(), a.sessions.PreferredLanguage())
	if err != nil {
		fmt.Printf("upload failed: %v\n", err)
		return
	}
	a.send("", resp.AudioURL)
}

func (a *app) listen() {
	if !a.recognizer.Supported() {
		fmt.Println("speech recognition unavailable (set ASR_WS_URL and -mic)")
		return
	}
	if a.recognizer.State() == voice.StateListening {
		a.recognizer.Stop()
		fmt.Println("stopped listening")
		return
	}
	a.recognizer.Start()
	fmt.Printf("listening (%s)...\n", a.recognizer.Locale())
}

func (a *app) resetRecognizer() {
	if a.recognizer != nil {
		a.recognizer.Stop()
	}
	a.recognizer = voice.NewRecognizer(a.engine, a.sessions.PreferredLanguage(), a.log)
	a.recognizer.OnResult(func(text string) {
		fmt.Printf("\n(heard) %s\n", text)
		a.send(text, "")
	})
}

// renderer prints messages as they are appended to the transcript.
type renderer struct {
	mu          sync.Mutex
	out         io.Writer
	coordinator *chat.Coordinator
	printed     int
}

func (r *renderer) render() {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.coordinator.Messages()
	if len(msgs) < r.printed {
		r.printed = 0
	}
	for _, m := range msgs[r.printed:] {
		if m.Role == chatmodel.RoleUser {
			continue
		}
		fmt.Fprintln(r.out, formatMessage(m))
	}
	r.printed = len(msgs)
}

func formatMessage(m chatmodel.Message) string {
	var b strings.Builder
	b.WriteString("sarthi")
	if m.HasConfidence() {
		fmt.Fprintf(&b, " [%d%% %s]", *m.Confidence, chatmodel.BandFor(*m.Confidence))
	}
	b.WriteString(": ")
	b.WriteString(m.Content)
	for _, s := range m.Sources {
		fmt.Fprintf(&b, "\n  source: %s", s.Title)
		if s.Page > 0 {
			fmt.Fprintf(&b, " p.%d", s.Page)
		}
	}
	for _, s := range m.Suggestions {
		fmt.Fprintf(&b, "\n  try: %s", s)
	}
	return b.String()
}

func fileSource(path string) voice.AudioSource {
	return func(context.Context) (io.ReadCloser, error) {
		return os.Open(path)
	}
}

type fileDevice struct {
	path string
}

func micDevice(path string) voice.CaptureDevice {
	if path == "" {
		return nil
	}
	return fileDevice{path: path}
}

func (d fileDevice) Open(context.Context) (io.ReadCloser, string, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, "", err
	}
	return f, mime.TypeByExtension(filepath.Ext(d.path)), nil
}

func extensionFor(mimeType string) string {
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".webm"
}
