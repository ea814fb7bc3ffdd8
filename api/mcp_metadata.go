package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/flowstream/pkg/mcptools"
)

const defaultMCPTimeout = 300 * time.Second

// MCPServerMetadataResponse echoes the server config with its tools.
type MCPServerMetadataResponse struct {
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	URL       string            `json:"url,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Tools     []mcptools.Tool   `json:"tools"`
}

// listTools is swapped out in tests.
var listTools = mcptools.ListTools

// handleMCPServerMetadata connects to an MCP server and lists its tools.
func (s *Server) handleMCPServerMetadata(c *fiber.Ctx) error {
	var req mcptools.ServerConfig
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(DetailResponse{Detail: fmt.Sprintf("invalid request: %v", err)})
	}

	if req.TimeoutSeconds == nil {
		seconds := int(s.config.MCPTimeout / time.Second)
		req.TimeoutSeconds = &seconds
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DetailResponse{Detail: err.Error()})
	}

	tools, err := listTools(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, mcptools.ErrInvalidConfig) || errors.Is(err, mcptools.ErrUnsupportedTransport) {
			return c.Status(fiber.StatusBadRequest).JSON(DetailResponse{Detail: err.Error()})
		}
		s.logger.Error("MCP server metadata lookup failed",
			"transport", req.Transport,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(DetailResponse{Detail: err.Error()})
	}

	return c.JSON(MCPServerMetadataResponse{
		Transport: req.Transport,
		Command:   req.Command,
		Args:      req.Args,
		URL:       req.URL,
		Env:       req.Env,
		Tools:     tools,
	})
}
