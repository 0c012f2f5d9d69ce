// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"expenses/internal/auth"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the services the handlers call into.
type Deps struct {
	Auth     *auth.Service
	Expenses *services.ExpenseService
	Ledger   *ledger.Engine
	Logger   *applog.Logger
	Ready    []ReadinessCheck
}

// Options tunes request handling.
type Options struct {
	DefaultPageSize int
	// RateLimitRPM bounds /register and /login per client per minute.
	RateLimitRPM int
}

type Server struct {
	http.Server
	auth            *auth.Service
	expenses        *services.ExpenseService
	ledger          *ledger.Engine
	ready           []ReadinessCheck
	defaultPageSize int

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = ledger.DefaultPageSize
	}

	resolver := security.NewResolver()

	s := &Server{
		auth:            deps.Auth,
		expenses:        deps.Expenses,
		ledger:          deps.Ledger,
		ready:           deps.Ready,
		defaultPageSize: opts.DefaultPageSize,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		tracer:          trace.NewMiddleware(deps.Logger, resolver.ClientIP),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(applog.ComponentMiddleware(applog.ComponentAuth))
		r.Use(s.limiter.Middleware(resolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Detail: "Rate limit exceeded. Please try again later."})
		}))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Use(applog.ComponentMiddleware(applog.ComponentLedger))
		r.Use(s.RequireIdentity)
		r.Post("/", s.handleCreateExpense)
		r.Get("/", s.handleListExpenses)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/{id}", s.handleGetExpense)
		r.Put("/{id}", s.handleUpdateExpense)
		r.Delete("/{id}", s.handleDeleteExpense)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background workers and gracefully drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}

type healthResponse struct {
	Status    string            `json:"status"`
	Requests  trace.Metrics     `json:"requests"`
	RateLimit ratelimit.Metrics `json:"rate_limit"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.ready))
	status := http.StatusOK
	for _, c := range s.ready {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "check", c.Name, applog.FieldError, err)
			continue
		}
		checks[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
