// Package api provides the HTTP API server that streams chat responses under
// supervision and exposes recorded session outcomes.
package api

import (
	"time"

	"github.com/papercomputeco/flowstream/api/mcp"
	"github.com/papercomputeco/flowstream/pkg/metrics"
	"github.com/papercomputeco/flowstream/pkg/storage"
	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "flowstream API"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// Engine runs chat workflows. Nil puts the server in limited mode.
	Engine workflow.Engine

	// EngineErr is why Engine failed to initialize, reported in limited mode.
	EngineErr error

	// Supervisor delivers every chat stream. Required.
	Supervisor *stream.Supervisor

	// Driver backs the sessions endpoints. Optional.
	Driver storage.Driver

	// Metrics serves /metrics when set.
	Metrics *metrics.Collector

	// MCP serves the sessions MCP server at /mcp when set.
	MCP *mcp.Server

	// MCPTimeout is the default timeout of MCP metadata lookups.
	MCPTimeout time.Duration

	// Production restricts CORS to AllowedOrigins.
	Production bool

	// AllowedOrigins are the CORS origins allowed in production.
	AllowedOrigins []string
}
