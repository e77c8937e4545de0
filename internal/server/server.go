// Package server exposes reconciled reports over HTTP for dashboards.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/siterisk/internal/cache"
	"github.com/sells-group/siterisk/internal/pipeline"
	"github.com/sells-group/siterisk/internal/report"
	"github.com/sells-group/siterisk/internal/source"
)

// DefaultMaxUploadBytes caps multipart uploads when Options leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// Reporter produces a reconciled result for a source and region.
type Reporter interface {
	Run(ctx context.Context, src source.Source, region string) (*pipeline.Result, error)
}

// Options configures the HTTP surface.
type Options struct {
	// DefaultSource backs GET /v1/reports/default. Nil disables that route.
	DefaultSource  source.Source
	MaxUploadBytes int64
	HitListLength  int
	Export         report.ExportOptions
	CORSOrigins    []string
	// Cache enables the /v1/cache routes when set.
	Cache *cache.Cache
}

// Server serves reports produced by a Reporter.
type Server struct {
	reporter Reporter
	opts     Options
}

// New creates a Server.
func New(r Reporter, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{reporter: r, opts: opts}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Report-Fingerprint"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/reports", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Post("/{view}", s.handleUpload)
		r.Get("/default", s.handleDefault)
		r.Get("/default/{view}", s.handleDefault)
	})

	if s.opts.Cache != nil {
		r.Route("/v1/cache", func(r chi.Router) {
			r.Get("/stats", s.handleCacheStats)
			r.Post("/purge", s.handleCachePurge)
			r.Delete("/", s.handleCacheInvalidate)
		})
	}

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
