package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/flowstream/pkg/storage"
	"github.com/papercomputeco/flowstream/pkg/stream"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	Engine            string `json:"engine,omitempty"`
	EngineInitialized bool   `json:"engine_initialized"`
	EngineError       string `json:"engine_error,omitempty"`
	Note              string `json:"note,omitempty"`
	TimeoutSeconds    int64  `json:"stream_timeout_seconds"`
}

// SessionListResponse is the body of GET /api/sessions.
type SessionListResponse struct {
	Sessions []*storage.SessionRecord `json:"sessions"`
	Count    int                      `json:"count"`
}

// handleHealth reports liveness. A server without an engine is healthy but
// limited.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:            "healthy",
		Service:           ServiceName,
		Engine:            s.engineName(),
		EngineInitialized: s.config.Engine != nil,
		TimeoutSeconds:    int64(s.config.Supervisor.Timeout().Seconds()),
	}
	if s.config.EngineErr != nil {
		resp.EngineError = s.config.EngineErr.Error()
		resp.Note = "Running in limited mode - some features may not be available"
	}
	return c.JSON(resp)
}

// handleListSessions returns recorded sessions, newest first.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session storage is not configured"})
	}

	opts := storage.ListOptions{
		ThreadID: c.Query("thread_id"),
		State:    c.Query("state"),
	}
	if opts.State != "" {
		if _, ok := stream.ParseState(opts.State); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown session state: " + opts.State})
		}
	}

	var err error
	if opts.Limit, err = queryInt(c, "limit"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if opts.Offset, err = queryInt(c, "offset"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	recs, err := s.config.Driver.List(c.Context(), opts)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	return c.JSON(SessionListResponse{Sessions: recs, Count: len(recs)})
}

// handleGetSession returns a single session record by its ID.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session storage is not configured"})
	}

	id := c.Params("id")
	rec, err := s.config.Driver.Get(c.Context(), id)
	var notFound storage.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: notFound.Error()})
	}
	if err != nil {
		s.logger.Error("failed to get session", "session_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get session"})
	}

	return c.JSON(rec)
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
