package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bnema/hivemind/internal/application"
)

// RouteTool handles route: which agents a task would be sent to, without running them.
type RouteTool struct {
	router *application.Router
}

func NewRouteTool(router *application.Router) *RouteTool {
	return &RouteTool{router: router}
}

func (t *RouteTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("route",
		mcpgo.WithDescription("List the specialist agents a task would be routed to and the keywords that matched."),
		mcpgo.WithString("task",
			mcpgo.Required(),
			mcpgo.Description("Task description in natural language"),
		),
	)
}

func (t *RouteTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	task, err := req.RequireString("task")
	if err != nil {
		return mcpgo.NewToolResultError("'task' is required"), nil
	}

	var b strings.Builder
	matches := t.router.Explain(task)
	if len(matches) == 0 {
		ids := t.router.Defaults()
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			names = append(names, string(id))
		}
		fmt.Fprintf(&b, "No keyword matched; default agents: %s\n", strings.Join(names, ", "))
		return mcpgo.NewToolResultText(b.String()), nil
	}

	for _, m := range matches {
		fmt.Fprintf(&b, "- %s %s [%s] matched: %s\n", m.Agent.ID, m.Agent.Name, m.Agent.Team.Label(), strings.Join(m.Keywords, ", "))
	}
	return mcpgo.NewToolResultText(b.String()), nil
}
