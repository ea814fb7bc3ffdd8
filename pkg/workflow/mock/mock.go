// Package mock provides a workflow engine that streams canned replies. It
// needs no credentials and backs the server when no model is configured.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

// EngineName is the name the mock engine is registered under.
const EngineName = "mock"

// Agent is the agent name attached to mock chunks.
const Agent = "coordinator"

// Config configures the mock engine.
type Config struct {
	// Delay is the pause before each chunk.
	Delay time.Duration

	Logger *slog.Logger
}

// Engine streams a canned reply one word at a time.
type Engine struct {
	delay  time.Duration
	logger *slog.Logger
}

// New creates a mock engine.
func New(c Config) *Engine {
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Engine{delay: c.Delay, logger: l}
}

func (e *Engine) Name() string {
	return EngineName
}

// Stream returns a producer for the canned reply to req. Runs that ask for a
// plan without auto-acceptance end in an interrupt asking for plan feedback.
func (e *Engine) Stream(_ context.Context, req workflow.Request) (stream.Producer, error) {
	input := req.LastUserMessage()
	reply := Reply(input)
	interrupt := false

	if req.ProseOption != "" {
		reply = ProseReply(req.ProseOption, req.ProseText)
	} else if resume, ok := req.Resume(); ok {
		reply = resumeReply(req.InterruptFeedback)
		input = resume
	} else if !req.AutoAcceptedPlan && strings.Contains(strings.ToLower(input), "plan") {
		interrupt = true
	}

	e.logger.Debug("mock workflow run",
		"thread_id", req.ThreadID,
		"input_length", len(input),
		"interrupt", interrupt,
	)

	runID := "run-" + uuid.NewString()

	return stream.FromEmitter(func(ctx context.Context, emit func(stream.Event) error) error {
		words := Chunk(reply)
		for i, word := range words {
			if err := e.wait(ctx); err != nil {
				return err
			}

			payload := workflow.MessagePayload{
				ThreadID: req.ThreadID,
				Agent:    Agent,
				ID:       runID,
				Role:     stream.RoleAssistant,
				Content:  word,
			}
			if i == len(words)-1 && !interrupt {
				payload.FinishReason = workflow.FinishStop
			}

			if err := emit(stream.Event{Type: stream.TypeMessageChunk, Data: payload}); err != nil {
				return err
			}
		}

		if !interrupt {
			return nil
		}

		return emit(stream.Event{
			Type: stream.TypeInterrupt,
			Data: workflow.MessagePayload{
				ThreadID:     req.ThreadID,
				ID:           runID,
				Role:         stream.RoleAssistant,
				Content:      "Please review the research plan.",
				FinishReason: workflow.FinishInterrupt,
				Options:      workflow.PlanReviewOptions,
			},
		})
	}), nil
}

func (e *Engine) wait(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(e.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reply picks the canned reply for an input by keyword.
func Reply(input string) string {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "search") || strings.Contains(lower, "find"):
		return "I'm a mock LLM. I would normally help you search for information, but I'm currently in testing mode. Please configure a real LLM API key for full functionality."
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "Hello! I'm a mock LLM running in testing mode. To get real responses, please configure your LLM API keys."
	case strings.Contains(lower, "test"):
		return "Mock LLM test response successful!"
	case strings.Contains(lower, "error"):
		return "This is a mock error response for testing purposes."
	default:
		return fmt.Sprintf("Mock LLM received: '%s...' - Please configure real LLM API keys for actual responses.", truncate(input, 100))
	}
}

// ProseReply is the canned result of a prose edit.
func ProseReply(option, text string) string {
	switch option {
	case workflow.ProseContinue:
		return "The mock writer picks up where you left off and adds a closing sentence."
	case workflow.ProseShorter:
		return truncate(text, 40)
	case workflow.ProseLonger:
		return text + " The mock writer adds a supporting detail here."
	case workflow.ProseFix:
		return text
	default:
		return fmt.Sprintf("Mock prose %s of: %s", option, truncate(text, 100))
	}
}

func resumeReply(feedback string) string {
	switch strings.ToLower(feedback) {
	case "accepted":
		return "Plan accepted. Starting research."
	case "edit_plan":
		return "Updating the plan with your feedback."
	default:
		return fmt.Sprintf("Received feedback: %s", feedback)
	}
}

// Chunk splits text into word chunks, keeping the trailing space on each so
// the chunks concatenate back to the original text.
func Chunk(text string) []string {
	if text == "" {
		return []string{""}
	}
	return strings.SplitAfter(text, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
