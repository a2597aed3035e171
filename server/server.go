// Package server 是 movierec 的 HTTP API。
//
//	GET  /healthz
//	GET  /v1/users/{userID}/recommendations?top_n=5
//	GET  /v1/users/{userID}/feed?top_n=10&exclude=1,2
//	GET  /v1/movies/{movieID}/similar?top_n=5
//	POST /v1/admin/rebuild
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/pipeline"
)

// Config 是 HTTP 服务配置。
type Config struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxTopN 单次请求允许的最大 top_n
	MaxTopN int `koanf:"max_top_n"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxTopN:         100,
	}
}

// Server 把 engine 暴露为 HTTP 接口。
type Server struct {
	cfg      Config
	engine   *engine.Engine
	catalog  *catalog.Catalog
	feed     *pipeline.Pipeline
	logger   zerolog.Logger
	gatherer prometheus.Gatherer
}

type Option func(*Server)

func WithConfig(cfg Config) Option { return func(s *Server) { s.cfg = cfg } }

// WithCatalog 设置用于回填标题的电影元数据。
func WithCatalog(c *catalog.Catalog) Option { return func(s *Server) { s.catalog = c } }

// WithFeed 设置 /feed 使用的 pipeline，未设置时 /feed 返回 501。
func WithFeed(p *pipeline.Pipeline) Option { return func(s *Server) { s.feed = p } }

func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithGatherer 设置 /metrics 暴露的指标来源，默认 prometheus.DefaultGatherer。
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// New 创建 Server。
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		cfg:      DefaultConfig(),
		engine:   e,
		logger:   zerolog.Nop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回路由。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-ID"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, elapsed time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("elapsed", elapsed).
			Msg("request")
	}))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/users/{userID}/recommendations", s.handleRecommend)
		r.Get("/users/{userID}/feed", s.handleFeed)
		r.Get("/movies/{movieID}/similar", s.handleSimilar)
		r.Post("/admin/rebuild", s.handleRebuild)
	})
	return r
}

// Run 启动 HTTP 服务，ctx 取消后优雅退出。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
