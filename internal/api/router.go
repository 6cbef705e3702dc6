// Package api wires the HTTP surface: the categories endpoint plus the
// operational routes (health, metrics, admin).
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/3xpluto/second-service/internal/category"
	"github.com/3xpluto/second-service/internal/httpx"
	"github.com/3xpluto/second-service/internal/mw"
	"github.com/3xpluto/second-service/internal/ratelimit"
	"github.com/3xpluto/second-service/internal/timing"
)

const CategoriesPath = "/second/categories"

type Options struct {
	Log    *slog.Logger
	Finder category.Finder

	Metrics  *mw.Metrics
	Gatherer prometheus.Gatherer

	// Limiter may be nil (no throttling).
	Limiter     ratelimit.Limiter
	IPResolver  mw.IPResolver
	Semaphore   *mw.Semaphore
	MaxBodySize int64

	AdminKey string
	Timings  timing.Store
	Info     StatusInfo

	Propagator propagation.TextMapPropagator
	Clock      timing.Clock
}

// StatusInfo is echoed by /-/status.
type StatusInfo struct {
	StartedAt   time.Time
	ListenAddr  string
	UpstreamURL string
	TimingStore string
}

func NewRouter(o Options) http.Handler {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	h := &handlers{log: o.Log, finder: o.Finder, timings: o.Timings, info: o.Info}

	r := chi.NewRouter()
	r.Use(
		mw.RequestID,
		func(next http.Handler) http.Handler { return mw.TimeStart(o.Clock, next) },
		func(next http.Handler) http.Handler { return mw.Recover(o.Log, next) },
		func(next http.Handler) http.Handler { return mw.Baggage(o.Propagator, next) },
	)

	observe := func(routeName string, next http.Handler) http.Handler {
		next = mw.AccessLog(o.Log, next)
		if o.Metrics != nil {
			next = mw.Instrument(o.Metrics, next)
		}
		return mw.WithRoute(next, routeName)
	}

	var cat http.Handler = http.HandlerFunc(h.categories)
	cat = mw.ConcurrencyLimit(o.Semaphore, cat)
	cat = mw.RateLimit(o.Limiter, o.IPResolver, cat)
	cat = mw.MaxBodyBytes(o.MaxBodySize, cat)
	// POST is kept for wire compatibility with existing callers even though
	// the route only reads.
	r.Method(http.MethodPost, CategoriesPath, observe("categories", cat))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if o.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}

	admin := func(routeName string, fn http.HandlerFunc) http.Handler {
		return observe(routeName, mw.RequireAdminKey(o.AdminKey, fn))
	}
	r.Method(http.MethodGet, "/-/status", admin("admin_status", h.status))
	r.Method(http.MethodGet, "/-/timings", admin("admin_timings", h.timingRecord))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})
	return r
}
