package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/mategen/internal/tool"
)

// Caller is the part of an MCP client the bridge needs.
type Caller interface {
	Initialize(ctx context.Context, req mcpgo.InitializeRequest) (*mcpgo.InitializeResult, error)
	ListTools(ctx context.Context, req mcpgo.ListToolsRequest) (*mcpgo.ListToolsResult, error)
	CallTool(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error)
}

// clientVersion is reported to MCP servers during initialization.
const clientVersion = "1.0.0"

// Load initializes the session and adapts every tool the server lists.
func Load(ctx context.Context, c Caller, server string, prefix bool, timeout time.Duration) ([]tool.Tool, error) {
	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "mategen", Version: clientVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("tool.mcp: initialize %s: %w", server, err)
	}

	res, err := c.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("tool.mcp: list tools of %s: %w", server, err)
	}

	out := make([]tool.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := inputSchema(t)
		if err != nil {
			return nil, fmt.Errorf("tool.mcp: schema of %s/%s: %w", server, t.Name, err)
		}
		name := t.Name
		if prefix {
			name = server + "_" + t.Name
		}
		out = append(out, &remoteTool{
			caller:      c,
			name:        name,
			remoteName:  t.Name,
			description: t.Description,
			schema:      schema,
			timeout:     timeout,
		})
	}
	return out, nil
}

func inputSchema(t mcpgo.Tool) (json.RawMessage, error) {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema, nil
	}
	if t.InputSchema.Type == "" {
		t.InputSchema.Type = "object"
	}
	if t.InputSchema.Properties == nil {
		t.InputSchema.Properties = map[string]any{}
	}
	return json.Marshal(t.InputSchema)
}

// remoteTool forwards Execute to a tool hosted by an MCP server.
type remoteTool struct {
	caller      Caller
	name        string
	remoteName  string
	description string
	schema      json.RawMessage
	timeout     time.Duration
}

var _ tool.Tool = (*remoteTool)(nil)

func (t *remoteTool) Name() string            { return t.name }
func (t *remoteTool) Description() string     { return t.description }
func (t *remoteTool) Schema() json.RawMessage { return t.schema }

func (t *remoteTool) Execute(ctx context.Context, args map[string]any, _ tool.Env) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	res, err := t.caller.CallTool(ctx, req)
	if err != nil {
		return "", err
	}
	text := contentText(res.Content)
	if res.IsError {
		if text == "" {
			text = "remote tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

// contentText joins the text items of a result. Non-text items are
// summarized by type.
func contentText(items []mcpgo.Content) string {
	parts := make([]string, 0, len(items))
	for _, c := range items {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		case mcpgo.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s]", v.MIMEType))
		case mcpgo.EmbeddedResource:
			parts = append(parts, "[embedded resource]")
		default:
			parts = append(parts, fmt.Sprintf("[%T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
