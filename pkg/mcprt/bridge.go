// CLAUDE:SUMMARY Bridges registry-defined read-only query tools onto an MCP server
package mcprt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Bridge registers every dynamic tool currently loaded in the registry on
// the MCP server. Dynamic tools are read-only introspection queries over the
// scoring database (ledgers, eligibility pipeline, recalc traces); the
// fact-producing tools are registered separately and never pass through
// here.
func Bridge(srv *mcp.Server, reg *Registry) {
	for _, t := range reg.ListTools() {
		registerQueryTool(srv, reg, t)
	}
}

func registerQueryTool(srv *mcp.Server, reg *Registry, t *DynamicTool) {
	schemaJSON, _ := json.Marshal(t.InputSchema)
	tool := &mcp.Tool{Name: t.Name, Description: t.Description, InputSchema: json.RawMessage(schemaJSON)}

	toolName := t.Name
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Sprintf("%s: %v", toolName, err)), nil
			}
		}
		result, err := reg.ExecuteTool(ctx, toolName, args)
		if err != nil {
			return errorResult(fmt.Sprintf("%s: %v", toolName, err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	})
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
