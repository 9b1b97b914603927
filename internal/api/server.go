package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/advisor"
	"github.com/terra-clan/scheme-connect/internal/catalog"
	"github.com/terra-clan/scheme-connect/internal/config"
	"github.com/terra-clan/scheme-connect/internal/ingest"
)

const requestTimeout = 60 * time.Second

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	maxUploadBytes int64
	router         *chi.Mux
	catalog        *catalog.Store
	importer       *ingest.Importer
	advisor        *advisor.Manager
	logger         *zap.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	store *catalog.Store,
	importer *ingest.Importer,
	manager *advisor.Manager,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:         cfg.Server,
		maxUploadBytes: cfg.Ingest.MaxUploadBytes,
		catalog:        store,
		importer:       importer,
		advisor:        manager,
		logger:         logger.Named("api"),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check and metrics (outside versioned API)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		timeout := middleware.Timeout(requestTimeout)

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get("/categories", s.handleListCategories)
			r.Get("/stats", s.handleStats)
			r.Post("/respond", s.handleRespond)

			// Schemes
			r.Route("/schemes", func(r chi.Router) {
				r.Get("/", s.handleListSchemes)
				r.Post("/", s.handleCreateScheme)
				r.Get("/featured", s.handleFeaturedSchemes)
				r.Post("/import", s.handleImportSchemes)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetScheme)
					r.Put("/", s.handleUpdateScheme)
					r.Delete("/", s.handleDeleteScheme)
				})
			})
		})

		// Advisor sessions
		r.Route("/sessions", func(r chi.Router) {
			r.With(timeout).Post("/", s.handleCreateSession)
			r.With(timeout).Get("/", s.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.sessionCtx)

				// Long-lived websocket, no request timeout
				r.Get("/chat", s.handleChatWS)

				r.Group(func(r chi.Router) {
					r.Use(timeout)

					r.Get("/", s.handleGetSession)
					r.Delete("/", s.handleDeleteSession)
					r.Get("/profile", s.handleGetProfile)
					r.Patch("/profile", s.handleUpdateProfile)
					r.Get("/recommendations", s.handleRecommendations)
					r.Get("/eligibility", s.handleEligibility)
					r.Get("/workflow", s.handleGetWorkflow)
					r.Post("/workflow/{step}/complete", s.handleCompleteStep)
					r.Get("/messages", s.handleListMessages)
					r.Post("/messages", s.handleSendMessage)
				})
			})
		})
	})

	s.router = r
}
