package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

// Server is the flowstream HTTP API server.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App

	// streams tracks chat streams still writing after their handler returned.
	streams sync.WaitGroup

	// baseCtx parents every supervised session; Shutdown cancels it with
	// stream.ErrShutdown.
	baseCtx context.Context
	cancel  context.CancelCauseFunc
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Supervisor == nil {
		return nil, errors.New("supervisor is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.MCPTimeout <= 0 {
		config.MCPTimeout = defaultMCPTimeout
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	ctx, cancel := context.WithCancelCause(context.Background())
	s := &Server{
		config:  config,
		logger:  logger,
		app:     app,
		baseCtx: ctx,
		cancel:  cancel,
	}

	app.Use(corsMiddleware(config))

	app.Get("/api/health", s.handleHealth)
	app.Post("/api/chat/stream", s.handleChatStream)
	app.Post("/api/prose/generate", s.handleProseGenerate)
	app.Post("/api/mcp/server/metadata", s.handleMCPServerMetadata)
	app.Get("/api/sessions", s.handleListSessions)
	app.Get("/api/sessions/:id", s.handleGetSession)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}
	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"engine", s.engineName(),
		"timeout", s.config.Supervisor.Timeout(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
		"engine", s.engineName(),
	)
	return s.app.Listener(listener)
}

// Shutdown ends running sessions with a "server shutting down" error event,
// waits for them to finish, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel(stream.ErrShutdown)

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("chat streams still running at shutdown deadline")
	}
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) engineName() string {
	if s.config.Engine == nil {
		return ""
	}
	return s.config.Engine.Name()
}
