package mcp

import (
	"context"
	"io"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bnema/hivemind/internal/application"
)

const instructions = `hivemind keeps a shared memory of facts, decisions, preferences and rules.
Recall before answering questions about conventions; store durable decisions when they are made.
Use route to see which specialists a task would reach.`

// New builds the MCP server with every memory tool and the route tool.
func New(version string, memory *application.MemoryService, router *application.Router) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"hivemind",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions),
	)

	storeTool := NewStoreTool(memory)
	s.AddTool(storeTool.Definition(), storeTool.Handle)

	recallTool := NewRecallTool(memory)
	s.AddTool(recallTool.Definition(), recallTool.Handle)

	forgetTool := NewForgetTool(memory)
	s.AddTool(forgetTool.Definition(), forgetTool.Handle)

	boostTool := NewBoostTool(memory)
	s.AddTool(boostTool.Definition(), boostTool.Handle)

	decayTool := NewDecayTool(memory)
	s.AddTool(decayTool.Definition(), decayTool.Handle)

	routeTool := NewRouteTool(router)
	s.AddTool(routeTool.Definition(), routeTool.Handle)

	return s
}

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
func Serve(ctx context.Context, s *mcpserver.MCPServer, in io.Reader, out io.Writer) error {
	return mcpserver.NewStdioServer(s).Listen(ctx, in, out)
}
