// Package upstream provides a workflow engine backed by an OpenAI-compatible
// chat completions endpoint.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/sse"
	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

// EngineName is the name the upstream engine is registered under.
const EngineName = "upstream"

// Agent is the agent name attached to upstream chunks.
const Agent = "reporter"

const maxErrorBody = 4 << 10

// Config configures the upstream engine.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string

	// HTTPClient defaults to a client without a timeout; the supervisor
	// bounds each session instead.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Engine streams chat completions from an OpenAI-compatible API.
type Engine struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// New validates c and creates an upstream engine.
func New(c Config) (*Engine, error) {
	if c.APIKey == "" {
		return nil, errors.New("upstream engine: api_key is required")
	}
	if c.Model == "" {
		return nil, errors.New("upstream engine: model is required")
	}
	if c.BaseURL == "" {
		return nil, errors.New("upstream engine: base_url is required")
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Engine{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		model:   c.Model,
		apiKey:  c.APIKey,
		client:  client,
		logger:  l,
	}, nil
}

func (e *Engine) Name() string {
	return EngineName
}

// Stream prepares a completion request for req. Nothing is sent until the
// producer is first pulled.
func (e *Engine) Stream(ctx context.Context, req workflow.Request) (stream.Producer, error) {
	messages := make([]completionMessage, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		messages = append(messages, completionMessage{Role: m.Role, Content: m.Content})
	}
	if resume, ok := req.Resume(); ok {
		messages = append(messages, completionMessage{Role: "user", Content: resume})
	}

	body, err := json.Marshal(completionRequest{
		Model:    e.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	// The HTTP exchange outlives the handler's context; it is bound to the
	// producer instead and cancelled by Close or by a cancelled pull.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	return &producer{
		engine:   e,
		threadID: req.ThreadID,
		body:     body,
		ctx:      runCtx,
		cancel:   cancel,
	}, nil
}

type producer struct {
	engine   *Engine
	threadID string
	body     []byte

	ctx    context.Context
	cancel context.CancelFunc

	resp    *http.Response
	reader  *sse.TeeReader
	pending []stream.Event

	closeOnce sync.Once
}

func (p *producer) Next(ctx context.Context) (stream.Event, error) {
	stop := context.AfterFunc(ctx, p.cancel)
	defer stop()

	if err := ctx.Err(); err != nil {
		return stream.Event{}, err
	}

	if p.reader == nil {
		if err := p.open(); err != nil {
			return stream.Event{}, p.pullErr(ctx, err)
		}
	}

	for len(p.pending) == 0 {
		ev, err := p.reader.Next()
		if err != nil {
			return stream.Event{}, p.pullErr(ctx, fmt.Errorf("reading completion stream: %w", err))
		}
		if ev == nil || ev.Data == "[DONE]" {
			return stream.Event{}, io.EOF
		}
		if ev.Data == "" {
			continue
		}

		events, err := p.translate(ev.Data)
		if err != nil {
			return stream.Event{}, err
		}
		p.pending = events
	}

	ev := p.pending[0]
	p.pending = p.pending[1:]
	return ev, nil
}

// pullErr prefers the caller's cancellation over the transport error it
// caused.
func (p *producer) pullErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (p *producer) open() error {
	url := p.engine.baseURL + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(p.ctx, http.MethodPost, url, bytes.NewReader(p.body))
	if err != nil {
		return fmt.Errorf("creating completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+p.engine.apiKey)

	p.engine.logger.Debug("opening completion stream",
		"url", url,
		"model", p.engine.model,
		"thread_id", p.threadID,
	)

	resp, err := p.engine.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("completion request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return fmt.Errorf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	p.resp = resp
	p.reader = sse.NewReader(resp.Body)
	return nil
}

// translate maps one completion chunk to zero or more stream events.
func (p *producer) translate(data string) ([]stream.Event, error) {
	var chunk completionChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, fmt.Errorf("decoding completion chunk: %w", err)
	}
	if chunk.Error != nil {
		return nil, fmt.Errorf("upstream error: %s", chunk.Error.Message)
	}

	var events []stream.Event
	for _, choice := range chunk.Choices {
		payload := workflow.MessagePayload{
			ThreadID: p.threadID,
			Agent:    Agent,
			ID:       chunk.ID,
			Role:     stream.RoleAssistant,
			Content:  choice.Delta.Content,
		}
		if choice.FinishReason != nil {
			payload.FinishReason = *choice.FinishReason
		}

		if len(choice.Delta.ToolCalls) == 0 {
			if payload.Content == "" && payload.FinishReason == "" {
				continue
			}
			events = append(events, stream.Event{Type: stream.TypeMessageChunk, Data: payload})
			continue
		}

		eventType := stream.TypeToolCallChunks
		for _, tc := range choice.Delta.ToolCalls {
			payload.ToolCallChunks = append(payload.ToolCallChunks, workflow.ToolCallChunk{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Args:  tc.Function.Arguments,
				Index: tc.Index,
				Type:  "tool_call_chunk",
			})

			// The first fragment of a call carries its id and name.
			if tc.ID != "" && tc.Function.Name != "" {
				eventType = stream.TypeToolCalls
				payload.ToolCalls = append(payload.ToolCalls, workflow.ToolCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: map[string]any{},
					Type: "tool_call",
				})
			}
		}
		events = append(events, stream.Event{Type: eventType, Data: payload})
	}

	return events, nil
}

func (p *producer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.cancel()
		if p.resp != nil {
			err = p.resp.Body.Close()
		}
	})
	return err
}
