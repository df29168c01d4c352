package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sw33tLie/adscope/internal/metrics"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/pipeline"
	"github.com/sw33tLie/adscope/pkg/storage"
)

// Runner processes an uploaded batch. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, in []ads.RawAd, opts pipeline.RunOptions) (*pipeline.Result, error)
}

type Server struct {
	DB       *storage.DB
	Metrics  *metrics.Pipeline
	Username string
	Password string
	Log      utils.Logger
	// Runner enables POST /api/runs when set. It should report to Metrics.
	Runner Runner
	// OutputDir receives the CSV files of uploaded runs.
	OutputDir string
}

func New(db *storage.DB, m *metrics.Pipeline, user, pass string, log utils.Logger) *Server {
	return &Server{
		DB:       db,
		Metrics:  m,
		Username: user,
		Password: pass,
		Log:      utils.OrNop(log),
	}
}

// Handler builds the router. /healthz is never behind basic auth.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.accessLog)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Group(func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/runs", s.handleRuns)
		if s.Runner != nil {
			r.Post("/api/runs", s.handleCreateRun)
		}
		r.Route("/api/runs/{id}", func(r chi.Router) {
			r.Get("/", s.handleRun)
			r.Get("/estimates", s.handleEstimates)
			r.Get("/low-confidence", s.handleLowConfidence)
		})
		if s.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
		}
	})
	return mux
}

func (s *Server) Start(addr string) error {
	s.Log.Infof("Starting server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Debugf("http %s %s %d rid=%s latency=%s", r.Method, r.URL.Path, ww.Status(), middleware.GetReqID(r.Context()), time.Since(start))
	})
}
