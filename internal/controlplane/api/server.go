package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/iscsitgt/internal/config"
	"github.com/marmos91/iscsitgt/internal/controlplane/api/auth"
	"github.com/marmos91/iscsitgt/internal/controlplane/audit"
	"github.com/marmos91/iscsitgt/internal/controlplane/store"
	"github.com/marmos91/iscsitgt/internal/logger"
	"github.com/marmos91/iscsitgt/internal/target/portal"
	"github.com/marmos91/iscsitgt/internal/target/session"
)

// Server provides the control-plane REST API's HTTP server, with graceful
// shutdown support.
type Server struct {
	server       *http.Server
	config       config.ControlPlaneConfig
	shutdownOnce sync.Once
}

// NewServer creates the control-plane API server from the given config and
// live dependencies. cpStore, targets, sessions and auditLog may be nil
// only in tests exercising the health endpoints directly.
func NewServer(cfg config.ControlPlaneConfig, cpStore store.Store, targets *portal.Registry, sessions *session.Registry, auditLog *audit.Log) (*Server, error) {
	if len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("controlplane.jwt_signing_key must be at least 32 characters")
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:              cfg.JWTSigningKey,
		AccessTokenDuration: cfg.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	router := NewRouter(Deps{
		Store:         cpStore,
		Targets:       targets,
		Sessions:      sessions,
		Audit:         auditLog,
		JWTService:    jwtService,
		AdminUsername: cfg.AdminUsername,
		AdminPassHash: cfg.AdminPasswordHash,
	})

	httpServer := &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{server: httpServer, config: cfg}, nil
}

// Start listens and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("control-plane API listening", "address", s.config.BindAddress)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("control-plane API shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("control-plane API failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("control-plane API shutdown error: %w", err)
			logger.Error("control-plane API shutdown error", "error", err)
		} else {
			logger.Info("control-plane API stopped gracefully")
		}
	})
	return shutdownErr
}
