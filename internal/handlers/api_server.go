// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/fizzbuzz/internal/game"
	"github.com/jason-s-yu/fizzbuzz/internal/middleware"
	"github.com/sirupsen/logrus"
)

// APIServer holds what the HTTP handlers need. It keeps no per-session state.
type APIServer struct {
	svc               *game.Service
	log               *logrus.Logger
	dev               bool
	playTokenRequired bool
}

type ServerOptions struct {
	Development       bool
	PlayTokenRequired bool
}

func NewAPIServer(svc *game.Service, logger *logrus.Logger, opts ServerOptions) *APIServer {
	return &APIServer{
		svc:               svc,
		log:               logger,
		dev:               opts.Development,
		playTokenRequired: opts.PlayTokenRequired,
	}
}

// Routes builds the router for the whole API.
func (a *APIServer) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(a.log))
	r.Use(middleware.Recover(a.log))
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Get("/", a.ListGamesHandler)
			r.Post("/", a.CreateGameHandler)
			r.Get("/{id}", a.GetGameHandler)
			r.Put("/{id}", a.UpdateGameHandler)
			r.Delete("/{id}", a.DeleteGameHandler)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/start", a.StartSessionHandler)
			r.Get("/{id}", a.GetSessionHandler)
			r.Get("/{id}/question", a.SessionStateHandler)
			r.Get("/{id}/results", a.SessionResultsHandler)
			r.Post("/{id}/answer", a.SubmitAnswerHandler)
			r.Post("/{id}/end", a.EndSessionHandler)
		})
	})
	return r
}
