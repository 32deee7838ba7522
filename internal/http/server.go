package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"wallet/internal/budget"
	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/middleware/ratelimit"
	"wallet/internal/middleware/security"
	"wallet/internal/middleware/trace"
	"wallet/internal/services"
	"wallet/internal/store"
)

// BudgetAPI is the service surface the handlers need.
type BudgetAPI interface {
	Location() *time.Location
	Transactions(ctx context.Context) []core.Transaction
	AddTransaction(ctx context.Context, in services.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Budget(ctx context.Context) decimal.Decimal
	UpdateBudget(ctx context.Context, amount decimal.Decimal) error
	Currency(ctx context.Context) string
	SetCurrency(ctx context.Context, code string) error
	CurrentAlert() (budget.Alert, bool)
	DismissAlert()
	DailySummary(ctx context.Context, date time.Time) services.DaySummary
	MonthSummary(ctx context.Context, year int, month time.Month) core.MonthOverview
	Dashboard(ctx context.Context) services.Dashboard
	Backup(ctx context.Context) (store.Snapshot, error)
	Restore(ctx context.Context, snap store.Snapshot) error
}

// ServerOptions configures the middleware chain around the API.
type ServerOptions struct {
	Logger             *log.Logger
	RateLimitRPM       int
	CORSAllowedOrigins []string
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func(ctx context.Context) error
	Clock func() time.Time
}

type Server struct {
	http.Server
	svc    BudgetAPI
	logger *log.Logger
	ready  func(ctx context.Context) error
	now    func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc BudgetAPI, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Server{
		svc:     svc,
		logger:  logger.WithComponent(log.ComponentHTTP),
		ready:   opts.Ready,
		now:     clock,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
	}
	s.detector = security.NewDetector(logger)
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/summary/day", s.handleDaySummary)
	mux.HandleFunc("GET /api/summary/month", s.handleMonthSummary)
	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.handleUpdateBudget)
	mux.HandleFunc("GET /api/currency", s.handleGetCurrency)
	mux.HandleFunc("PUT /api/currency", s.handleUpdateCurrency)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/alert", s.handleGetAlert)
	mux.HandleFunc("DELETE /api/alert", s.handleDismissAlert)
	mux.HandleFunc("GET /api/backup", s.handleBackup)
	mux.HandleFunc("POST /api/restore", s.handleRestore)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
	})

	var handler http.Handler = mux
	handler = corsHandler.Handler(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, onRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Shutdown stops background goroutines and the HTTP server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
