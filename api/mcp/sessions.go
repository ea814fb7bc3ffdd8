package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/flowstream/pkg/storage"
)

var (
	listSessionsToolName    = "list_sessions"
	listSessionsDescription = "List recorded stream sessions, newest first. Filter by thread_id or terminal state (completed, cancelled, timed_out, failed)."

	getSessionToolName    = "get_session"
	getSessionDescription = "Get one recorded stream session by its session id, including how it ended and how many events were delivered."
)

// ListSessionsInput represents the input arguments for the list_sessions tool.
type ListSessionsInput struct {
	ThreadID string `json:"thread_id,omitempty" jsonschema:"only sessions of this conversation thread"`
	State    string `json:"state,omitempty" jsonschema:"only sessions that ended in this state"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of sessions to return (default: 20)"`
}

// GetSessionInput represents the input arguments for the get_session tool.
type GetSessionInput struct {
	ID string `json:"id" jsonschema:"the session id"`
}

// Session is the tool view of a session record. Times are RFC 3339 strings.
type Session struct {
	ID         string `json:"id"`
	ThreadID   string `json:"thread_id"`
	Engine     string `json:"engine"`
	State      string `json:"state"`
	Events     int    `json:"events"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
}

// ListSessionsOutput represents the output of the list_sessions tool.
type ListSessionsOutput struct {
	Sessions []Session `json:"sessions"`
	Count    int       `json:"count"`
}

// GetSessionOutput represents the output of the get_session tool.
type GetSessionOutput struct {
	Session Session `json:"session"`
}

func (s *Server) handleListSessions(ctx context.Context, _ *mcp.CallToolRequest, input ListSessionsInput) (*mcp.CallToolResult, ListSessionsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	s.config.Logger.Debug("MCP list sessions request",
		"thread_id", input.ThreadID,
		"state", input.State,
		"limit", limit,
	)

	recs, err := s.config.Driver.List(ctx, storage.ListOptions{
		ThreadID: input.ThreadID,
		State:    input.State,
		Limit:    limit,
	})
	if err != nil {
		s.config.Logger.Error("failed to list sessions", "error", err)
		return errorResult(fmt.Sprintf("Failed to list sessions: %v", err)), ListSessionsOutput{}, nil
	}

	output := ListSessionsOutput{Sessions: make([]Session, 0, len(recs))}
	for _, rec := range recs {
		output.Sessions = append(output.Sessions, toSession(rec))
	}
	output.Count = len(output.Sessions)

	return textResult(output)
}

func (s *Server) handleGetSession(ctx context.Context, _ *mcp.CallToolRequest, input GetSessionInput) (*mcp.CallToolResult, GetSessionOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), GetSessionOutput{}, nil
	}

	rec, err := s.config.Driver.Get(ctx, input.ID)
	var notFound storage.NotFoundError
	if errors.As(err, &notFound) {
		return errorResult(notFound.Error()), GetSessionOutput{}, nil
	}
	if err != nil {
		s.config.Logger.Error("failed to get session", "id", input.ID, "error", err)
		return errorResult(fmt.Sprintf("Failed to get session: %v", err)), GetSessionOutput{}, nil
	}

	return textResult(GetSessionOutput{Session: toSession(rec)})
}

func toSession(rec *storage.SessionRecord) Session {
	return Session{
		ID:         rec.ID,
		ThreadID:   rec.ThreadID,
		Engine:     rec.Engine,
		State:      rec.State,
		Events:     rec.Events,
		Error:      rec.Error,
		StartedAt:  rec.StartedAt.UTC().Format(time.RFC3339Nano),
		DurationMs: rec.DurationMs,
	}
}

// textResult returns output both as structured content and as serialized
// JSON in a TextContent block.
func textResult[Out any](output Out) (*mcp.CallToolResult, Out, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero Out
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
