package api

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

// handleChatStream runs a chat workflow and streams its events to the caller
// as Server-Sent Events under a supervisor session.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	if s.config.Engine == nil {
		return s.engineUnavailable(c)
	}

	req := workflow.NewChatRequest()
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(DetailResponse{Detail: fmt.Sprintf("invalid chat request: %v", err)})
	}

	threadID := req.ThreadID
	if threadID == "" || threadID == workflow.DefaultThreadID {
		threadID = uuid.NewString()
	}

	return s.startStream(c, req.Request(threadID), func(w io.Writer) stream.Sink {
		return stream.NewSSESink(w)
	})
}

// handleProseGenerate runs a prose edit and streams the produced text as bare
// data frames.
func (s *Server) handleProseGenerate(c *fiber.Ctx) error {
	if s.config.Engine == nil {
		return s.engineUnavailable(c)
	}

	var req workflow.ProseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(DetailResponse{Detail: fmt.Sprintf("invalid prose request: %v", err)})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DetailResponse{Detail: err.Error()})
	}

	s.logger.Info("generating prose", "option", req.Option, "prompt_length", len(req.Prompt))

	return s.startStream(c, req.Request(uuid.NewString()), func(w io.Writer) stream.Sink {
		return stream.NewTextSink(w)
	})
}

func (s *Server) engineUnavailable(c *fiber.Ctx) error {
	detail := "Service temporarily unavailable. Workflow engine initialization failed"
	if s.config.EngineErr != nil {
		detail += ": " + s.config.EngineErr.Error()
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(DetailResponse{Detail: detail})
}

// startStream starts the engine run for req and hands the response body to a
// supervisor session writing through the sink built by newSink.
func (s *Server) startStream(c *fiber.Ctx, req workflow.Request, newSink func(io.Writer) stream.Sink) error {
	// Sessions outlive the handler, so they hang off the server context
	// rather than c.Context(), which fasthttp recycles once this returns.
	producer, err := s.config.Engine.Stream(s.baseCtx, req)
	if err != nil {
		s.logger.Error("failed to start workflow", "thread_id", req.ThreadID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(DetailResponse{Detail: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// io.Pipe gives per-event backpressure: each Send blocks until fasthttp
	// has taken the bytes. When the client goes away fasthttp closes the
	// reader, the next Send fails, and the supervisor ends the session as
	// cancelled.
	pr, pw := io.Pipe()
	s.streams.Add(1)
	go s.superviseStream(s.baseCtx, req.ThreadID, producer, newSink(pw), pw)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) superviseStream(ctx context.Context, threadID string, producer stream.Producer, sink stream.Sink, pw *io.PipeWriter) {
	defer s.streams.Done()
	defer pw.Close()

	s.config.Supervisor.Run(ctx, threadID, producer, sink)
}
