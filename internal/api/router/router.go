package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/yaronhayo/contractor-clone-craft-sub000/internal/http/middleware"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/relay"
	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	RelayHandler       *relay.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	AdminAuthSecret    string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.RelayHandler != nil {
			// The handler owns the method guard so that a stray GET gets
			// the endpoint's own 405 body rather than chi's default.
			public.HandleFunc("/api/send-email", cfg.RelayHandler.SendEmail)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin endpoints
	if cfg.RelayHandler != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/admin/test-send", cfg.RelayHandler.SendTest)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
