// Package http is the thin front door over the swap pipeline.
package http

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"intentswap/internal/config"
	"intentswap/internal/infra/evm"
	"intentswap/internal/intent"
	"intentswap/internal/pipeline"
	"intentswap/internal/registry"
	"intentswap/internal/status"
)

// Swapper is the pipeline surface the transport depends on.
type Swapper interface {
	ExecuteSwap(ctx context.Context, raw intent.RawIntent) pipeline.SwapResult
	CheckStatus(ctx context.Context, chain string, hash common.Hash) (status.TxStatus, error)
}

// Server represents the HTTP transport layer.
type Server struct {
	swapper  Swapper
	provider evm.Provider
	reg      *registry.Registry
	mux      *http.ServeMux
	log      *zap.Logger

	graceTimeout      time.Duration
	readHeaderTimeout time.Duration
	requestTimeout    time.Duration
}

// NewServer creates a new HTTP server with registered routes.
func NewServer(swapper Swapper, provider evm.Provider, reg *registry.Registry, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	s := &Server{
		swapper:  swapper,
		provider: provider,
		reg:      reg,
		mux:      http.NewServeMux(),
		log:      log,

		graceTimeout:      cfg.GraceTimeout,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
		requestTimeout:    cfg.RequestTimeout,
	}

	s.mux.HandleFunc("POST /swap", s.handleSwap)
	s.mux.HandleFunc("GET /swap/{chain}/{hash}/status", s.handleStatus)
	s.mux.HandleFunc("GET /balance", s.handleBalance)
	s.mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("pong")); err != nil {
			s.log.Warn("ping write error", zap.Error(err))
		}
	})

	return s, nil
}

// Handler exposes the routed mux. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.logMiddleware(s.mux)
}

// ListenAndServe starts the HTTP server and enables graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "srv.ListenAndServe")
	case <-stop:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.graceTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "srv.Shutdown")
	}
	s.log.Info("server stopped gracefully")
	return nil
}

// logMiddleware logs each HTTP request and the time taken to process it.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.Duration("took", time.Since(start)))
	})
}
