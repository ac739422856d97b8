// Package mcp exposes the tools of a Model Context Protocol server as
// provider tool definitions and runs their calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/i2y/llmstream/provider"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// Client wraps an MCP client session.
type Client struct {
	session *mcp.ClientSession
	timeout time.Duration
}

// Option configures the MCP client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout time.Duration
}

// WithTimeout sets the timeout for tool execution.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// Connect opens a session over transport.
func Connect(ctx context.Context, transport mcp.Transport, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "llmstream",
		Version: "0.1.0",
	}, nil)

	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}

	return &Client{
		session: session,
		timeout: cfg.timeout,
	}, nil
}

// NewStdioClient starts command and talks MCP to it over stdio.
//
// Example:
//
//	client, err := mcp.NewStdioClient(ctx, "./my-mcp-server", nil)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	tools, err := client.ToolDefinitions(ctx)
func NewStdioClient(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	return Connect(ctx, &mcp.CommandTransport{Command: exec.Command(command, args...)}, opts...)
}

// ToolDefinitions lists the server's tools.
func (c *Client) ToolDefinitions(ctx context.Context) ([]provider.ToolDefinition, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	defs := make([]provider.ToolDefinition, 0, len(result.Tools))
	for _, tool := range result.Tools {
		defs = append(defs, ToolDefinition(tool))
	}
	return defs, nil
}

// ToolDefinition converts an MCP tool. A schema that cannot be encoded is
// replaced by an empty object schema.
func ToolDefinition(tool *mcp.Tool) provider.ToolDefinition {
	def := provider.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: emptyObjectSchema,
	}
	if tool.InputSchema == nil {
		return def
	}
	if raw, err := json.Marshal(tool.InputSchema); err == nil && string(raw) != "null" {
		def.InputSchema = raw
	}
	return def
}

// Call runs a tool call on the server. Failures are reported in the result
// with IsError set, so they can be fed back to the model.
func (c *Client) Call(ctx context.Context, call provider.ToolCall) provider.ToolResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: call.Input,
	})
	if err != nil {
		return provider.ToolResult{
			ToolUseID: call.ID,
			Content:   fmt.Sprintf("calling MCP tool %q: %v", call.Name, err),
			IsError:   true,
		}
	}

	return provider.ToolResult{
		ToolUseID: call.ID,
		Content:   processToolResult(result.Content),
		IsError:   result.IsError,
	}
}

// Close closes the MCP session.
func (c *Client) Close() error {
	return c.session.Close()
}

// processToolResult extracts text content from MCP tool result.
// Multiple content items are joined with newlines.
// Non-text content (images, resources) are represented as descriptive text.
func processToolResult(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch item := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, item.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s, %d bytes]", item.MIMEType, len(item.Data)))
		case *mcp.EmbeddedResource:
			if item.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", item.Resource.URI))
			} else {
				parts = append(parts, "[Resource: embedded]")
			}
		}
	}
	return strings.Join(parts, "\n")
}
