package workflow

// DefaultThreadID asks the server to start a new thread.
const DefaultThreadID = "__default__"

// ChatRequest is the body of POST /api/chat/stream.
type ChatRequest struct {
	Messages                      []Message      `json:"messages"`
	Resources                     []Resource     `json:"resources,omitempty"`
	Debug                         bool           `json:"debug,omitempty"`
	ThreadID                      string         `json:"thread_id"`
	MaxPlanIterations             int            `json:"max_plan_iterations"`
	MaxStepNum                    int            `json:"max_step_num"`
	MaxSearchResults              int            `json:"max_search_results"`
	AutoAcceptedPlan              bool           `json:"auto_accepted_plan"`
	InterruptFeedback             string         `json:"interrupt_feedback,omitempty"`
	MCPSettings                   map[string]any `json:"mcp_settings,omitempty"`
	EnableBackgroundInvestigation bool           `json:"enable_background_investigation"`
}

// NewChatRequest returns a request carrying the server-side defaults. Decode
// a body into it so absent fields keep their defaults.
func NewChatRequest() ChatRequest {
	return ChatRequest{
		ThreadID:                      DefaultThreadID,
		MaxPlanIterations:             1,
		MaxStepNum:                    3,
		MaxSearchResults:              3,
		EnableBackgroundInvestigation: true,
	}
}

// Request converts the wire request for an engine run on threadID.
func (c ChatRequest) Request(threadID string) Request {
	return Request{
		ThreadID:                      threadID,
		Messages:                      c.Messages,
		Resources:                     c.Resources,
		MaxPlanIterations:             c.MaxPlanIterations,
		MaxStepNum:                    c.MaxStepNum,
		MaxSearchResults:              c.MaxSearchResults,
		AutoAcceptedPlan:              c.AutoAcceptedPlan,
		InterruptFeedback:             c.InterruptFeedback,
		MCPSettings:                   c.MCPSettings,
		EnableBackgroundInvestigation: c.EnableBackgroundInvestigation,
	}
}
