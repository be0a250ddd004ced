/*
server.go - Router and middleware configuration

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Post("/{id}/tip", h.Tip)
			r.Post("/{id}/claim", h.Claim)
			r.Post("/{id}/referral", h.Referral)
			r.Post("/{id}/spend", h.Spend)
		})

		r.Route("/social", func(r chi.Router) {
			r.Post("/{family}", h.SocialAct)
			r.Delete("/{family}", h.SocialUndo)
		})

		r.Post("/quests/{id}/complete", h.CompleteQuest)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", h.GetOrCreateConversation)
			r.Get("/{id}/messages", h.ListMessages)
			r.Post("/{id}/messages", h.PostMessage)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Put("/{id}", h.EditMessage)
			r.Delete("/{id}", h.DeleteMessage)
		})
	})

	return r
}
