// Package http exposes the finance reports and the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"consultcrm/internal/cache"
	"consultcrm/internal/core"
	"consultcrm/internal/finance"
	applog "consultcrm/internal/log"
	"consultcrm/internal/middleware/auth"
	"consultcrm/internal/middleware/ratelimit"
	"consultcrm/internal/middleware/security"
	"consultcrm/internal/middleware/trace"
)

// Reports computes the finance reports. *services.FinanceService implements it.
type Reports interface {
	Metrics(ctx context.Context, ref time.Time) (finance.MonthlyMetrics, error)
	Forecast(ctx context.Context, ref time.Time, days int) ([]finance.ForecastPoint, error)
	Analytics(ctx context.Context, query finance.AnalyticsQuery) (finance.Analytics, error)
}

// Ledger reads and writes ledger records. *services.LedgerService implements it.
type Ledger interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListLiabilities(ctx context.Context) ([]core.Liability, error)
	CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error)
	DeleteLiability(ctx context.Context, id string) error
	ListContacts(ctx context.Context) ([]core.Contact, error)
	CreateContact(ctx context.Context, c core.Contact) (core.Contact, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Reports Reports
	Ledger  Ledger
	Logger  *applog.Logger

	HorizonDays     int
	RateLimitPerMin int
	// JWTSecret enables bearer authentication on /api when set.
	JWTSecret string
	// CacheTTL bounds how long a report is served from cache; zero disables caching.
	CacheTTL time.Duration
}

type Server struct {
	http.Server
	reports Reports
	ledger  Ledger
	horizon int
	now     func() time.Time

	reportCache  *cache.LRUCache[any]
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = finance.DefaultHorizonDays
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = opts.RateLimitPerMin

	s := &Server{
		reports: opts.Reports,
		ledger:  opts.Ledger,
		horizon: opts.HorizonDays,
		now:     func() time.Time { return time.Now().UTC() },
		limiter: ratelimit.NewLimiter(limitCfg),
	}
	if opts.CacheTTL > 0 {
		s.reportCache = cache.NewLRUCache[any](256, opts.CacheTTL)
		s.cacheManager = cache.NewManager(s.reportCache)
		s.cacheManager.StartCleanup(time.Minute)
	}

	ips := security.NewClientIPResolver()
	httpLogger := opts.Logger.WithComponent(applog.ComponentHTTP)

	r := mux.NewRouter()
	r.Use(trace.NewMiddleware(httpLogger, ips.ClientIP).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if opts.JWTSecret != "" {
		api.Use(auth.NewVerifier(opts.JWTSecret).Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected unauthenticated request", applog.FieldError, err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
		}))
	}
	api.Use(s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, ips.ClientIP(r))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	}))

	api.HandleFunc("/finance/metrics", s.handleMetrics).Methods(http.MethodGet)
	api.HandleFunc("/finance/forecast", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/finance/analytics", s.handleAnalytics).Methods(http.MethodGet)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/liabilities", s.handleListLiabilities).Methods(http.MethodGet)
	api.HandleFunc("/liabilities", s.handleCreateLiability).Methods(http.MethodPost)
	api.HandleFunc("/liabilities/{id}", s.handleDeleteLiability).Methods(http.MethodDelete)

	api.HandleFunc("/contacts", s.handleListContacts).Methods(http.MethodGet)
	api.HandleFunc("/contacts", s.handleCreateContact).Methods(http.MethodPost)

	s.Server = http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Shutdown stops the background sweepers, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the ledger store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
