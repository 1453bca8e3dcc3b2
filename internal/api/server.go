// Package api exposes the projection engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealbook/internal/auth"
	"github.com/sells-group/dealbook/internal/projection"
)

// Options configures the router.
type Options struct {
	// RateLimitRPS and RateLimitBurst bound requests per client. Zero
	// disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	// MaxIDs caps the ids accepted in one lookup. Defaults to 5000.
	MaxIDs int
}

// Server holds the handler dependencies.
type Server struct {
	svc    projection.Service
	tokens *auth.TokenParser
	maxIDs int
}

// NewRouter builds the HTTP handler. tokens may be nil, in which case
// every caller is anonymous.
func NewRouter(svc projection.Service, tokens *auth.TokenParser, opts Options) http.Handler {
	s := &Server{svc: svc, tokens: tokens, maxIDs: opts.MaxIDs}
	if s.maxIDs <= 0 {
		s.maxIDs = 5000
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if opts.RateLimitRPS > 0 {
		burst := max(opts.RateLimitBurst, 1)
		r.Use(newClientLimiter(rate.Limit(opts.RateLimitRPS), burst, 10*time.Minute).middleware)
	}
	r.Use(s.identity)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1/projections", func(r chi.Router) {
		r.Post("/requests", s.handleRequests)
		r.Post("/businesses", s.handleBusinesses)
		r.Post("/opportunities", s.handleOpportunities)
		r.Get("/dashboard", s.handleDashboard)
	})

	return r
}
