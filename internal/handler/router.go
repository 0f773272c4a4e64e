package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	adminhandler "github.com/campus-sarthi/sarthi/backend/internal/handler/admin"
	audiohandler "github.com/campus-sarthi/sarthi/backend/internal/handler/audio"
	"github.com/campus-sarthi/sarthi/backend/internal/handler/escalate"
	"github.com/campus-sarthi/sarthi/backend/internal/handler/query"
	speechhandler "github.com/campus-sarthi/sarthi/backend/internal/handler/speech"
	widgethandler "github.com/campus-sarthi/sarthi/backend/internal/handler/widget"
	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/middleware"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

// Deps are the services behind the HTTP surface. Admin, Speech and Widget are
// optional.
type Deps struct {
	Gateway        query.Gateway
	Escalations    escalate.Intake
	Audio          audiohandler.Library
	Admin          adminhandler.Service
	Speech         *speechhandler.Handler
	Widget         *widgethandler.Handler
	AllowedOrigins []string
	Log            *logger.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	log := logger.OrNop(d.Log)
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	escalateHandler := escalate.New(d.Escalations, log)

	r.Route("/api", func(api chi.Router) {
		query.New(d.Gateway, log).RegisterRoutes(api)
		escalateHandler.RegisterRoutes(api)
		audiohandler.New(d.Audio, log).RegisterRoutes(api)

		if d.Speech != nil {
			d.Speech.RegisterRoutes(api)
		}
		if d.Widget != nil {
			d.Widget.RegisterRoutes(api)
		}

		if d.Admin != nil {
			adminHandler := adminhandler.New(d.Admin, log)
			auth := middleware.NewAdminAuth(log)
			api.Route("/admin", func(ar chi.Router) {
				adminHandler.RegisterPublicRoutes(ar)
				ar.Group(func(protected chi.Router) {
					protected.Use(auth.RequireToken)
					adminHandler.RegisterRoutes(protected)
					escalateHandler.RegisterAdminRoutes(protected)
				})
			})
		}
	})

	return r
}
