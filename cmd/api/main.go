package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campus-sarthi/sarthi/backend/internal/config"
	"github.com/campus-sarthi/sarthi/backend/internal/handler"
	speechhandler "github.com/campus-sarthi/sarthi/backend/internal/handler/speech"
	widgethandler "github.com/campus-sarthi/sarthi/backend/internal/handler/widget"
	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	adminmodel "github.com/campus-sarthi/sarthi/backend/internal/model/admin"
	adminsvc "github.com/campus-sarthi/sarthi/backend/internal/service/admin"
	"github.com/campus-sarthi/sarthi/backend/internal/service/answer"
	"github.com/campus-sarthi/sarthi/backend/internal/service/audio"
	"github.com/campus-sarthi/sarthi/backend/internal/service/escalation"
	"github.com/campus-sarthi/sarthi/backend/internal/service/gateway"
	"github.com/campus-sarthi/sarthi/backend/internal/widget"
)

const mockTranscript = "Mock transcript of the audio"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootstrapFatal("failed to load configuration", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		bootstrapFatal("failed to build logger", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log.SugaredLogger.Desugar())

	if envErr != nil {
		log.Debug("no .env file loaded, using process environment", "error", envErr)
	}

	transcriber := audio.StaticTranscriber{Text: mockTranscript}
	library := audio.NewLibrary(transcriber, log)

	var (
		answerer    answer.Answerer
		transcripts gateway.TranscriptLookup
		adminOpts   adminsvc.Options
		fallback    string
	)
	switch cfg.Upstream.Mode {
	case config.ModePython:
		client := answer.NewPythonClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, nil, log)
		answerer = answer.NewPythonAnswerer(client, cfg.Upstream.Branch, cfg.Upstream.Year, cfg.Upstream.TopK)
		transcripts = library
		adminOpts.Health = client
		adminOpts.Indexer = answer.NewPythonIndexer(client, cfg.Upstream.Branch, cfg.Upstream.Year)
		log.Info("answer backend configured", "mode", cfg.Upstream.Mode, "url", cfg.Upstream.BaseURL)
	default:
		answerer = answer.NewKeywordAnswerer()
		fallback = "default"
		log.Info("answer backend configured", "mode", cfg.Upstream.Mode)
	}

	gw := gateway.NewService(answerer, transcripts, gateway.Options{
		DefaultLanguage:   cfg.Chat.DefaultLanguage,
		Timeout:           cfg.Upstream.Timeout,
		VoiceFallbackText: fallback,
	}, log)

	notifiers := []escalation.Notifier{escalation.NewLogNotifier(log)}
	if cfg.Redis.Enabled() {
		redisNotifier, err := escalation.NewRedisNotifier(ctx, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			log.Warn("redis notifier unavailable, escalations will only be logged", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer redisNotifier.Close()
			notifiers = append(notifiers, redisNotifier)
			log.Info("redis escalation notifier enabled", "channel", cfg.Redis.Channel)
		}
	}
	escalations := escalation.NewService(log, notifiers...)

	deps := handler.Deps{
		Gateway:        gw,
		Escalations:    escalations,
		Audio:          library,
		Speech:         speechhandler.New(transcriber, log),
		Widget:         widgethandler.New(widget.NewHub(log), cfg.Widget.Host, widget.NewOriginPolicy(cfg.Widget.AllowedOrigins), cfg.Chat.Supports, log),
		AllowedOrigins: cfg.Widget.AllowedOrigins,
		Log:            log,
	}

	if cfg.Server.AdminEnabled {
		seed, err := adminmodel.Seed()
		if err != nil {
			log.Fatal("failed to load admin seed data", "error", err)
		}
		adminOpts.Escalations = escalations
		deps.Admin = adminsvc.NewService(seed, adminOpts, log)
	}

	startServer(ctx, cfg.Server, handler.NewRouter(deps), log)
}

// bootstrapFatal reports errors that happen before the configured logger
// exists.
func bootstrapFatal(msg string, err error) {
	l, lerr := zap.NewDevelopment()
	if lerr != nil {
		os.Exit(1)
	}
	l.Sugar().Fatalw(msg, "error", err)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *logger.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("campus sarthi api listening", "addr", serverCfg.Addr, "admin", serverCfg.AdminEnabled)
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", "error", err)
	}
	log.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
