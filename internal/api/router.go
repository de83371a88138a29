/**
 * @description
 * This file sets up the HTTP router for the rent service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, and authentication, and maps the routes to their handlers.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the rent service routes.
func NewRouter(h *Handlers, webhook *WebhookHandler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Rent service is healthy"))
	})

	// WhatsApp callbacks authenticate via HMAC signature, not bearer tokens.
	r.Get("/webhooks/whatsapp", webhook.Verify)
	r.Post("/webhooks/whatsapp", webhook.ServeHTTP)

	// Protected landlord routes.
	r.Group(func(r chi.Router) {
		r.Use(JWTAuthMiddleware(jwtSecret))

		r.Post("/leases", h.CreateLeaseHandler)
		r.Patch("/leases/{id}", h.UpdateLeaseTermsHandler)
		r.Get("/tenants/{tenantID}/units/{unitID}/lease", h.GetLeaseHandler)
		r.Get("/tenants/{tenantID}/obligations", h.ListTenantObligationsHandler)
		r.Get("/obligations/open", h.ListOpenObligationsHandler)
		r.Post("/obligations/{id}/payments", h.RecordPaymentHandler)
		r.Post("/cycle/run", h.RunCycleHandler)
	})

	return r
}
