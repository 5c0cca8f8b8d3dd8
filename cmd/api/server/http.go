package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-service/internal/config"
)

// Server wraps the HTTP server for the REST API
type Server struct {
	HTTP *http.Server
	log  *zap.Logger
}

// New creates the HTTP server with sane timeouts around the gin router
func New(cfg *config.Config, l *zap.Logger, router *gin.Engine) *Server {
	return &Server{
		HTTP: &http.Server{
			Addr:              ":" + cfg.App.HTTPPort,
			Handler:           router,
			ReadHeaderTimeout: 2 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: l,
	}
}

// Start runs the HTTP server until it is shut down
func (s *Server) Start() error {
	s.log.Info("HTTP server running", zap.String("address", s.HTTP.Addr))

	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, letting in-flight requests finish
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.HTTP.Shutdown(ctx)
}
