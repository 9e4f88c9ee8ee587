/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:      Request logging
  2. Recoverer:   Panic recovery (500 instead of crash)
  3. RequestID:   Unique ID per request for tracing
  4. CORS:        Cross-origin requests for frontend
  5. RequireUser: Resolves the X-User-ID header into the request context

ROUTE GROUPS:
  /api/accounts/*     Account management and balances
  /api/entries/*      Financial entries (payments, deposits, transfers,
                      adjustments)
  /api/open-month/*   Open-month state and advances
  /api/close/*        Soft-close checklist, execution, history
  /api/reopen         Reopen the previous month
  /api/dashboard      Month aggregates
  /api/recurring/*    Recurring templates

IDENTITY:
  The X-User-ID header carries an already-authenticated identity. This
  service trusts it; the gateway in front owns authentication. A request
  without the header is rejected with 400.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/budgethq/budgethq/ledger"
)

type contextKey string

const userKey contextKey = "budgethq.user"

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Delete("/{id}", h.DeleteAccount)
		})

		r.Get("/balances", h.GetBalances)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Delete("/{kind}/{id}", h.DeleteEntry)
		})

		r.Route("/open-month", func(r chi.Router) {
			r.Get("/", h.GetOpenMonth)
			r.Post("/advance", h.AdvanceOpenMonth)
		})

		r.Route("/close", func(r chi.Router) {
			r.Get("/checklist", h.GetChecklist)
			r.Post("/", h.CloseMonth)
			r.Get("/history", h.CloseHistory)
		})

		r.Post("/reopen", h.ReopenMonth)
		r.Get("/dashboard", h.GetDashboard)

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", h.ListRecurring)
			r.Post("/", h.CreateRecurring)
			r.Post("/run", h.RunRecurring)
		})
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// RequireUser resolves the X-User-ID header into the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-User-ID")
		if user == "" {
			writeError(w, http.StatusBadRequest, "Missing X-User-ID header", nil)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, ledger.UserID(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) ledger.UserID {
	user, _ := r.Context().Value(userKey).(ledger.UserID)
	return user
}
