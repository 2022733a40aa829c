package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yegors/streamscribe/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Server runs the live transcript API beside the streaming session
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer creates a new API server listening on addr
func NewServer(addr string, router *Router, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log.Named("api-server"),
	}
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	s.logger.Info("Starting API server", logger.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", logger.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("API server shutdown failed", logger.Error(err))
	}
}
