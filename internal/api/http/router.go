package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/auth/middleware"
	"github.com/mind-engage/xapi-tracker/internal/settings"
	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

type Server struct {
	Engine   *tracker.Engine
	Settings *settings.Resolver
	Admin    middleware.AdminToken
	Log      logrus.FieldLogger
}

// NewRouter mounts the event trigger, the admin settings channel and the
// health probe.
func NewRouter(s Server, origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/events", EventHandler(s.Engine, s.Log))

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(middleware.RequireAdmin(s.Admin, s.Log))
		ar.Get("/settings", SettingsGetHandler(s.Settings))
		ar.Post("/settings", SettingsUpdateHandler(s.Settings, s.Engine, s.Log))
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
