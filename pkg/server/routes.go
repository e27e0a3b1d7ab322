package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/emotibot/emotibot/pkg/auth"
	"github.com/emotibot/emotibot/pkg/models"
)

const ReadHeaderTimeout = 5 * time.Second

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) (*http.Server, error) {
	router, err := setupRouter(appState)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			appState.Config.Server.Host,
			appState.Config.Server.Port,
		),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}, nil
}

func setupRouter(appState *models.AppState) (*chi.Mux, error) {
	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(SendVersion)
	router.Use(appState.Metrics.Middleware)
	router.Use(middleware.Heartbeat("/healthz"))

	router.Handle("/metrics", appState.Metrics.Handler())

	var verifier func(http.Handler) http.Handler
	if appState.Config.Auth.Required {
		var err error
		verifier, err = auth.JWTVerifier(appState.Config)
		if err != nil {
			return nil, err
		}
		log.Info("JWT authentication required")
	}

	router.Route("/api/v1", func(r chi.Router) {
		if verifier != nil {
			r.Use(verifier)
			r.Use(jwtauth.Authenticator)
		}
		r.Use(MaxRequestSize(appState.Config.Server.MaxRequestSize))

		// Memory routes
		r.Post("/documents", AddDocumentHandler(appState))
		r.Post("/conversations", AddConversationHandler(appState))
		r.Post("/search", SearchHandler(appState))
		r.Get("/context", GetContextHandler(appState))

		// Collection routes
		r.Route("/collection", func(r chi.Router) {
			r.Get("/stats", GetCollectionStatsHandler(appState))
			r.Delete("/", ClearCollectionHandler(appState))
		})

		// Conversation routes
		r.Post("/chat", ChatHandler(appState))
		r.Post("/emotions", ScoreEmotionsHandler(appState))
		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", GetSessionHandler(appState))
			r.Delete("/", DeleteSessionHandler(appState))
		})
	})

	return router, nil
}
