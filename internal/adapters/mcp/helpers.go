// Package mcp exposes the memory store and the router as MCP tools over stdio.
//
// Every tool is a struct holding its dependencies with a Definition that
// returns the schema and a Handle that serves calls. Validation problems are
// returned as tool errors, never as protocol errors.
package mcp

import (
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bnema/hivemind/internal/domain"
)

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(req mcpgo.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func scopeArg(req mcpgo.CallToolRequest) (*domain.MemoryScope, error) {
	raw := strings.TrimSpace(req.GetString("scope", ""))
	if raw == "" {
		return nil, nil
	}
	scope, err := domain.ParseMemoryScope(raw)
	if err != nil {
		return nil, err
	}
	return &scope, nil
}

func memoryTypes() []string {
	return []string{
		string(domain.MemoryTypeFact),
		string(domain.MemoryTypeDecision),
		string(domain.MemoryTypePreference),
		string(domain.MemoryTypeRule),
		string(domain.MemoryTypePattern),
		string(domain.MemoryTypeAntiPattern),
	}
}

func memoryScopes() []string {
	scopes := make([]string, 0, len(domain.MemoryScopes))
	for _, s := range domain.MemoryScopes {
		scopes = append(scopes, string(s))
	}
	return scopes
}

func formatEntry(b *strings.Builder, entry domain.MemoryEntry, relevance float64) {
	fmt.Fprintf(b, "- [%s/%s] %s", entry.Type, entry.Category, entry.Content)
	if len(entry.Tags) > 0 {
		fmt.Fprintf(b, " (tags: %s)", strings.Join(entry.Tags, ", "))
	}
	fmt.Fprintf(b, "\n  id: %s, scope: %s, relevance: %.2f\n", entry.ID, entry.Scope, relevance)
}
