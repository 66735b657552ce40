package handlers

import (
	"context"
	"encoding/json"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerName is the MCP server name advertised during initialization.
const ServerName = "gbizinfo-mcp"

// NewMCPServer registers every tool of registry on a new MCP server. Tool
// failures are reported as error results carrying the error payload JSON, so
// the client sees message, id and details.
func NewMCPServer(registry *tools.Registry, version string, logger *zap.Logger) *server.MCPServer {
	logger = logger.Named("mcp_handler")
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range registry.List() {
		s.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, t.Schema), mcpHandler(registry, t.Name, logger))
	}
	return s
}

func mcpHandler(registry *tools.Registry, name string, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return errorResult(err), nil
		}

		res, err := registry.Call(ctx, name, args)
		if err != nil {
			logger.Debug("tool call failed", zap.String("tool", name), zap.Error(err))
			return errorResult(err), nil
		}

		data, err := json.Marshal(res)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	data, mErr := json.Marshal(e.ToPayload(err))
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}

// ServeStdio runs the MCP server on stdin/stdout until the input closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
