// Package mcptools lists the tools an MCP server exposes.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/flowstream/pkg/utils"
)

// Transport names accepted in ServerConfig.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable_http"
)

// DefaultTimeout bounds ListTools when ServerConfig.TimeoutSeconds is unset.
const DefaultTimeout = 300 * time.Second

var (
	// ErrUnsupportedTransport is returned for unknown transport names.
	ErrUnsupportedTransport = errors.New("unsupported MCP transport")

	// ErrInvalidConfig is wrapped by configuration validation errors.
	ErrInvalidConfig = errors.New("invalid MCP server config")
)

// ServerConfig describes how to reach an MCP server.
type ServerConfig struct {
	Transport      string            `json:"transport"`
	Command        string            `json:"command,omitempty"`
	Args           []string          `json:"args,omitempty"`
	URL            string            `json:"url,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds *int              `json:"timeout_seconds,omitempty"`
}

// Timeout returns the configured timeout or DefaultTimeout.
func (c ServerConfig) Timeout() time.Duration {
	if c.TimeoutSeconds == nil || *c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(*c.TimeoutSeconds) * time.Second
}

// Validate checks that the fields the transport needs are present.
func (c ServerConfig) Validate() error {
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("%w: command is required for stdio type", ErrInvalidConfig)
		}
	case TransportSSE, TransportStreamableHTTP:
		if c.URL == "" {
			return fmt.Errorf("%w: url is required for %s type", ErrInvalidConfig, c.Transport)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTransport, c.Transport)
	}
	return nil
}

// Tool is the metadata of one MCP tool.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

// ListTools connects to the server, pages through its tools, and
// disconnects. The whole exchange is bounded by cfg.Timeout().
func ListTools(ctx context.Context, cfg ServerConfig) ([]Tool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "flowstream",
		Version: utils.Version,
	}, nil)

	session, err := client.Connect(ctx, transport(ctx, cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}
	defer session.Close()

	tools := []Tool{}
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("listing MCP tools: %w", err)
		}
		for _, t := range res.Tools {
			tools = append(tools, Tool{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
		if res.NextCursor == "" {
			return tools, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

func transport(ctx context.Context, cfg ServerConfig) mcp.Transport {
	switch cfg.Transport {
	case TransportStdio:
		cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		return &mcp.CommandTransport{Command: cmd}
	case TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient(cfg.Headers)}
	default:
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient(cfg.Headers)}
	}
}

func httpClient(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return http.DefaultClient
	}
	return &http.Client{Transport: headerTransport{headers: headers, base: http.DefaultTransport}}
}

type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
