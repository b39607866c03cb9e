// Package api provides the versefinder HTTP and websocket service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/cache"
	"github.com/FocuswithJustin/versefinder/internal/history"
	"github.com/FocuswithJustin/versefinder/internal/logging"
	"github.com/FocuswithJustin/versefinder/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Config  Config
	Parser  *cache.ParseCache
	History *history.Store // nil disables the history endpoints
	Version string
}

// Server resolves transcripts over HTTP and websocket.
type Server struct {
	cfg      Config
	parser   *cache.ParseCache
	history  *history.Store
	metrics  *Metrics
	hub      *Hub
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	version  string
	started  time.Time

	stopHub context.CancelFunc
}

// New builds a server and starts its websocket hub. Call Close to release it.
func New(opts Options) *Server {
	if opts.Parser == nil {
		opts.Parser = cache.NewParseCache(refparse.Default(), cache.DefaultConfig())
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	cfg := opts.Config
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultConfig().MaxMessageSize
	}
	if cfg.MaxMessageRate <= 0 {
		cfg.MaxMessageRate = DefaultConfig().MaxMessageRate
	}

	s := &Server{
		cfg:     cfg,
		parser:  opts.Parser,
		history: opts.History,
		metrics: NewMetrics(),
		version: opts.Version,
		started: time.Now(),
	}
	s.hub = NewHub(s.metrics.wsConnections)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopHub = cancel
	go s.hub.Run(ctx)
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Close stops the hub, disconnecting websocket clients, and the rate limiter.
func (s *Server) Close() {
	s.stopHub()
	if s.limiter != nil {
		s.limiter.Close()
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /books", s.handleBooks)
	mux.HandleFunc("GET /parse", s.handleParseGet)
	mux.HandleFunc("POST /parse", s.handlePostParse)
	mux.HandleFunc("GET /history", s.handleHistoryList)
	mux.HandleFunc("DELETE /history", s.handleHistoryClear)
	mux.HandleFunc("GET /history/{id}", s.handleHistoryGet)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	})

	return mux
}

// Handler returns the routes wrapped in the middleware chain: security
// headers, rate limiting, CORS, then request ids and access logs outermost.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersMiddleware(server.APICSPConfig(), s.routes())
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORSMiddleware(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	logging.ServerStartup("versefinder", "http", s.cfg.Port,
		"websocket_protocol", "ws",
		"history", s.history != nil,
		"rate_limit", s.cfg.RateLimitRequests,
		"allowed_origins", len(s.cfg.AllowedOrigins))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		logging.Info("shutting down", "reason", context.Cause(ctx))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Close()
		return srv.Shutdown(shutdownCtx)
	}
}

// parse resolves a transcript through the cache, recording metrics and a
// debug log line.
func (s *Server) parse(ctx context.Context, transcript, source string) ParseResult {
	start := time.Now()
	p, hit := s.parser.Parse(transcript)
	d := time.Since(start)

	s.metrics.observeParse(source, p, hit, d)
	logging.ParseEvent(ctx, source, d, p.LogFields(), "cache_hit", hit)
	return NewParseResult(p, hit)
}
