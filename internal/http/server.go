// Package http exposes the household finance and reporting API as JSON
// endpoints over net/http.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hearth/internal/amqp"
	"hearth/internal/core"
	applog "hearth/internal/log"
	"hearth/internal/middleware/trace"
	"hearth/internal/reports"
	"hearth/internal/tasks"
)

// RecordStore is the storage capability the handlers write and read through.
type RecordStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
}

// ReportService executes canonical report and metrics queries.
type ReportService interface {
	Summary(ctx context.Context, q core.ReportQuery) (reports.Summary, error)
	Metrics(ctx context.Context, q core.MetricsQuery) (reports.MetricsReport, error)
	Invalidate()
}

// TaskReader answers task correlation queries from the chores domain.
type TaskReader interface {
	TasksByMember(ctx context.Context, f tasks.Filters) ([]tasks.Task, error)
	TaskStats(ctx context.Context, f tasks.Filters) (tasks.Stats, error)
}

// EventPublisher notifies downstream consumers of record writes. A nil
// publisher disables event publishing.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, msg amqp.RecordEventMessage) error
}

type Server struct {
	http.Server
	store        RecordStore
	reports      ReportService
	tasks        TaskReader
	converter    *core.Converter
	publisher    EventPublisher
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// publisher may be nil when no broker is configured.
func NewServer(addr string, store RecordStore, reportSvc ReportService, taskSvc TaskReader, converter *core.Converter, publisher EventPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       store,
		reports:     reportSvc,
		tasks:       taskSvc,
		converter:   converter,
		publisher:   publisher,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/expenses", s.observed(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.observed(s.handleGetExpense))
	mux.HandleFunc("POST /api/incomes", s.observed(s.handleCreateIncome))
	mux.HandleFunc("GET /api/incomes/{id}", s.observed(s.handleGetIncome))

	mux.HandleFunc("GET /api/reports/summary", s.observed(s.handleReportSummary))
	mux.HandleFunc("GET /api/reports/metrics", s.observed(s.handleMetrics))

	mux.HandleFunc("GET /api/tasks", s.observed(s.handleTasks))
	mux.HandleFunc("GET /api/tasks/stats", s.observed(s.handleTaskStats))

	mux.HandleFunc("GET /api/currencies", s.observed(s.handleCurrencies))

	return s
}

// observed wraps a handler with tracing, rate limiting and baseline headers.
func (s *Server) observed(next http.HandlerFunc) http.HandlerFunc {
	traced := trace.Middleware(clientIP, next)
	return func(w http.ResponseWriter, r *http.Request) {
		// Writes are rate limited per client; reads are not.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP(r)) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		traced.ServeHTTP(w, r)
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown stops the rate limiter cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
