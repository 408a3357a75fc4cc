// Package api serves the ledger's derived views over a read-only HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

// RequestTimeout bounds every request.
const RequestTimeout = 30 * time.Second

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", h.GetOverview)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/reports", h.GetReport)
		r.Get("/forecast", h.GetForecast)
		r.Get("/receivables", h.GetReceivables)
		r.Get("/chart.png", h.GetExpenseChart)

		r.Route("/export", func(r chi.Router) {
			r.Get("/shifts.csv", h.ExportShiftsCSV)
			r.Get("/expenses.csv", h.ExportExpensesCSV)
			r.Get("/report.xlsx", h.ExportWorkbook)
		})
	})

	return r
}

// NewServer wraps the router with OpenTelemetry instrumentation.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(NewRouter(h), "taxi-ledger-api"),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// requestLogger logs one line per request through the global zerolog logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
