// Package workflow defines the engines that produce a chat response as a
// stream of events for the supervisor to deliver.
package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

// ErrUnknownEngine is returned when no engine is registered under a name.
var ErrUnknownEngine = errors.New("unknown workflow engine")

// Engine starts a workflow run for a chat request. Stream must not block on
// the run itself: the returned Producer does the work lazily as it is pulled.
type Engine interface {
	Name() string
	Stream(ctx context.Context, req Request) (stream.Producer, error)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Resource is a document the caller attached to the request.
type Resource struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Request is a workflow run request.
type Request struct {
	ThreadID                      string
	Messages                      []Message
	Resources                     []Resource
	MaxPlanIterations             int
	MaxStepNum                    int
	MaxSearchResults              int
	AutoAcceptedPlan              bool
	InterruptFeedback             string
	MCPSettings                   map[string]any
	EnableBackgroundInvestigation bool

	// ProseOption is set for prose edit runs, with ProseText holding the
	// text being edited.
	ProseOption string
	ProseText   string
}

// Resume returns the resume command for a run that was interrupted for plan
// feedback, e.g. "[accepted] research quantum computing". The second return
// value is false when the request starts a fresh run.
func (r Request) Resume() (string, bool) {
	if r.AutoAcceptedPlan || r.InterruptFeedback == "" {
		return "", false
	}

	msg := "[" + r.InterruptFeedback + "]"
	if len(r.Messages) > 0 {
		msg += " " + r.Messages[len(r.Messages)-1].Content
	}
	return msg, true
}

// LastUserMessage is the content of the most recent user turn.
func (r Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if strings.EqualFold(r.Messages[i].Role, "user") {
			return r.Messages[i].Content
		}
	}
	return ""
}

// MessagePayload is the data of message_chunk, tool_calls, tool_call_chunks,
// tool_call_result and interrupt events.
type MessagePayload struct {
	ThreadID       string            `json:"thread_id"`
	Agent          string            `json:"agent,omitempty"`
	ID             string            `json:"id"`
	Role           string            `json:"role"`
	Content        string            `json:"content,omitempty"`
	FinishReason   string            `json:"finish_reason,omitempty"`
	ToolCallID     string            `json:"tool_call_id,omitempty"`
	ToolCalls      []ToolCall        `json:"tool_calls,omitempty"`
	ToolCallChunks []ToolCallChunk   `json:"tool_call_chunks,omitempty"`
	Options        []InterruptOption `json:"options,omitempty"`
}

// ToolCall is a complete tool invocation.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
	Type string         `json:"type"`
}

// ToolCallChunk is a fragment of a tool invocation being streamed.
type ToolCallChunk struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Args  string `json:"args"`
	Index int    `json:"index"`
	Type  string `json:"type"`
}

// InterruptOption is a choice offered to the caller when a run pauses for
// plan feedback.
type InterruptOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Finish reasons used by the engines.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishInterrupt = "interrupt"
)

// PlanReviewOptions are offered with every plan interrupt.
var PlanReviewOptions = []InterruptOption{
	{Text: "Edit plan", Value: "edit_plan"},
	{Text: "Start research", Value: "accepted"},
}
