// Package mcpserver exposes the tool catalog as Model Context Protocol tools,
// over stdio or streamable HTTP.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/tools"
	"github.com/HerbHall/devicedesk/internal/version"
)

// New builds an MCP server with one tool per catalog entry. Every call is
// routed through engine.Execute.
func New(engine *tools.Engine, logger *zap.Logger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    version.Name,
		Version: version.Short(),
	}, nil)

	for _, info := range engine.Tools() {
		server.AddTool(&mcp.Tool{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: info.InputSchema(),
		}, toolHandler(engine, info.Name, logger))
	}
	return server
}

func toolHandler(engine *tools.Engine, name string, logger *zap.Logger) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArguments(req.Params.Arguments)
		if err != nil {
			logger.Debug("bad mcp arguments", zap.String("tool", name), zap.Error(err))
			return errorResult(tools.Format(nil, &tools.Error{
				Kind:    tools.KindInvalidArgument,
				Tool:    name,
				Message: err.Error(),
			})), nil
		}
		return toResult(engine.Execute(ctx, name, args)), nil
	}
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return args, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// toResult carries the body as JSON text for clients that only read text
// content, and the whole Response as structured content.
func toResult(resp tools.Response) *mcp.CallToolResult {
	payload, err := json.Marshal(resp.Body)
	if err != nil {
		payload = []byte(`{"error":"Internal","message":"encode result"}`)
		resp.StatusCode = http.StatusInternalServerError
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		StructuredContent: resp,
		IsError:           !resp.OK(),
	}
}

func errorResult(resp tools.Response) *mcp.CallToolResult {
	r := toResult(resp)
	r.IsError = true
	return r
}

// ServeStdio runs server on stdin/stdout until ctx ends or the client
// disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves server over the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
