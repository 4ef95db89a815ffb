package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bnema/hivemind/internal/application"
	"github.com/bnema/hivemind/internal/domain"
)

const (
	defaultRecallLimit = 10
	maxRecallLimit     = 50
)

// StoreTool handles memory_store.
type StoreTool struct {
	memory *application.MemoryService
}

func NewStoreTool(memory *application.MemoryService) *StoreTool {
	return &StoreTool{memory: memory}
}

func (t *StoreTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("memory_store",
		mcpgo.WithDescription(
			"Store a fact, decision, preference, rule or pattern in hivemind memory so later tasks can recall it.",
		),
		mcpgo.WithString("type",
			mcpgo.Required(),
			mcpgo.Enum(memoryTypes()...),
			mcpgo.Description("Kind of memory"),
		),
		mcpgo.WithString("category",
			mcpgo.Required(),
			mcpgo.Description("File-level grouping, e.g. style, decisions, learnings"),
		),
		mcpgo.WithString("content",
			mcpgo.Required(),
			mcpgo.Description("The memory itself, one sentence is best"),
		),
		mcpgo.WithArray("tags",
			mcpgo.WithStringItems(),
			mcpgo.Description("Optional search tags"),
		),
		mcpgo.WithString("scope",
			mcpgo.Enum(memoryScopes()...),
			mcpgo.Description("Memory scope (default: long_term)"),
		),
	)
}

func (t *StoreTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	memType := req.GetString("type", "")
	category := req.GetString("category", "")
	content := req.GetString("content", "")
	if content == "" {
		return mcpgo.NewToolResultError("'content' is required"), nil
	}

	scope := domain.ScopeLongTerm
	if parsed, err := scopeArg(req); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	} else if parsed != nil {
		scope = *parsed
	}

	entry, err := t.memory.Store(ctx, domain.MemoryType(memType), category, content, req.GetStringSlice("tags", nil), scope)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Memory stored: [%s/%s] %s\nID: %s", entry.Type, entry.Category, entry.Content, entry.ID)), nil
}

// RecallTool handles memory_recall.
type RecallTool struct {
	memory *application.MemoryService
}

func NewRecallTool(memory *application.MemoryService) *RecallTool {
	return &RecallTool{memory: memory}
}

func (t *RecallTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("memory_recall",
		mcpgo.WithDescription(
			"Search hivemind memory. Results are ordered by relevance; an empty query lists the newest entries.",
		),
		mcpgo.WithString("query",
			mcpgo.Description("Keywords to search for"),
		),
		mcpgo.WithString("scope",
			mcpgo.Enum(memoryScopes()...),
			mcpgo.Description("Restrict the search to one scope"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description(fmt.Sprintf("Max results (default: %d, max: %d)", defaultRecallLimit, maxRecallLimit)),
		),
	)
}

func (t *RecallTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	scope, err := scopeArg(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	limit := intArg(req, "limit", defaultRecallLimit)
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	if limit > maxRecallLimit {
		limit = maxRecallLimit
	}

	query := req.GetString("query", "")
	found, err := t.memory.Recall(ctx, query, scope)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
	}
	if len(found) == 0 {
		return mcpgo.NewToolResultText(fmt.Sprintf("No memories found for %q", query)), nil
	}

	total := len(found)
	if total > limit {
		found = found[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories", total)
	if total > len(found) {
		fmt.Fprintf(&b, " (showing %d)", len(found))
	}
	b.WriteString(":\n\n")
	for _, s := range found {
		formatEntry(&b, s.Entry, s.Relevance)
	}
	return mcpgo.NewToolResultText(b.String()), nil
}

// ForgetTool handles memory_forget.
type ForgetTool struct {
	memory *application.MemoryService
}

func NewForgetTool(memory *application.MemoryService) *ForgetTool {
	return &ForgetTool{memory: memory}
}

func (t *ForgetTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("memory_forget",
		mcpgo.WithDescription("Delete one memory entry by id."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("Entry id as returned by memory_store or memory_recall"),
		),
	)
}

func (t *ForgetTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil || strings.TrimSpace(id) == "" {
		return mcpgo.NewToolResultError("'id' is required"), nil
	}

	removed, err := t.memory.Forget(ctx, id)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("forget failed: %v", err)), nil
	}
	if !removed {
		return mcpgo.NewToolResultText(fmt.Sprintf("No memory with id %s", id)), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Forgot %s", id)), nil
}

// WeightTool handles memory_boost and memory_decay.
type WeightTool struct {
	memory *application.MemoryService
	boost  bool
}

func NewBoostTool(memory *application.MemoryService) *WeightTool {
	return &WeightTool{memory: memory, boost: true}
}

func NewDecayTool(memory *application.MemoryService) *WeightTool {
	return &WeightTool{memory: memory}
}

func (t *WeightTool) Definition() mcpgo.Tool {
	name, desc := "memory_decay", fmt.Sprintf("Lower the recall weight of a memory (x%.1f, floor %.1f).", application.DecayFactor, application.MinWeight)
	if t.boost {
		name, desc = "memory_boost", fmt.Sprintf("Raise the recall weight of a memory (x%.1f, cap %.0f).", application.BoostFactor, application.MaxWeight)
	}
	return mcpgo.NewTool(name,
		mcpgo.WithDescription(desc),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("Entry id"),
		),
	)
}

func (t *WeightTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil || strings.TrimSpace(id) == "" {
		return mcpgo.NewToolResultError("'id' is required"), nil
	}

	scale := t.memory.Decay
	if t.boost {
		scale = t.memory.Boost
	}
	weight, ok, err := scale(ctx, id)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("update weight failed: %v", err)), nil
	}
	if !ok {
		return mcpgo.NewToolResultText(fmt.Sprintf("No memory with id %s", id)), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Weight of %s is now %.2f", id, weight)), nil
}
