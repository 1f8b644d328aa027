package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/config"
	"github.com/taskhive/taskhive-server/internal/events"
	"github.com/taskhive/taskhive-server/internal/quota"
	"github.com/taskhive/taskhive-server/internal/storage"
	"github.com/taskhive/taskhive-server/internal/validation"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	quota     *quota.Enforcer
	validator *validation.Validator
	publisher events.Publisher
	router    chi.Router
	server    *http.Server
	ready     atomic.Bool
}

// NewRESTServer creates a new REST API server. The publisher is optional;
// nil disables audit event publishing.
func NewRESTServer(cfg *config.Config, store storage.Store, publisher events.Publisher) *RESTServer {
	s := &RESTServer{
		config:    cfg,
		store:     store,
		auth:      auth.NewJWTManager(&cfg.JWT),
		quota:     quota.NewEnforcer(store),
		validator: validation.NewValidator(),
		publisher: publisher,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetReady marks migrations and seeding as complete; the readiness endpoint
// reports 503 until then.
func (s *RESTServer) SetReady() {
	s.ready.Store(true)
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr

	// Serve the SPA for non-API paths when a web directory is configured
	webDir := s.config.Web.StaticDir
	if webDir != "" {
		if _, err := os.Stat(webDir); os.IsNotExist(err) {
			log.Warn().Str("dir", webDir).Msg("Web directory not found, frontend will not be available")
		} else {
			log.Info().Str("dir", webDir).Msg("Serving frontend from directory")

			s.server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(r.URL.Path, "/api/") {
					s.router.ServeHTTP(w, r)
					return
				}

				fs := http.FileServer(http.Dir(webDir))

				// The SPA owns every extensionless path
				if r.URL.Path == "/" || !strings.Contains(r.URL.Path, ".") {
					http.ServeFile(w, r, filepath.Join(webDir, "index.html"))
					return
				}

				fs.ServeHTTP(w, r)
			})
		}
	}

	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying handler, for tests
func (s *RESTServer) Router() http.Handler {
	return s.router
}

// authMiddleware authenticates the bearer token. Every failure is the same
// uniform 401; which check failed is never surfaced.
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principalFrom extracts the authenticated principal set by authMiddleware
func (s *RESTServer) principalFrom(r *http.Request) *auth.Principal {
	claims, _ := r.Context().Value(claimsContextKey).(*auth.Claims)
	if claims == nil {
		return nil
	}
	return claims.Principal()
}
