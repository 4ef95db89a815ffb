package domain

import (
	"fmt"
	"strings"
	"time"
)

type MemoryType string
type MemoryScope string

const (
	MemoryTypeFact        MemoryType = "fact"
	MemoryTypeDecision    MemoryType = "decision"
	MemoryTypePreference  MemoryType = "preference"
	MemoryTypeRule        MemoryType = "rule"
	MemoryTypePattern     MemoryType = "pattern"
	MemoryTypeAntiPattern MemoryType = "anti_pattern"

	ScopeSession  MemoryScope = "session"
	ScopeLongTerm MemoryScope = "long_term"
	ScopeEpisodic MemoryScope = "episodic"
)

var MemoryScopes = []MemoryScope{ScopeSession, ScopeLongTerm, ScopeEpisodic}

func (t MemoryType) Valid() bool {
	switch t {
	case MemoryTypeFact, MemoryTypeDecision, MemoryTypePreference, MemoryTypeRule, MemoryTypePattern, MemoryTypeAntiPattern:
		return true
	default:
		return false
	}
}

func (s MemoryScope) Valid() bool {
	switch s {
	case ScopeSession, ScopeLongTerm, ScopeEpisodic:
		return true
	default:
		return false
	}
}

// Dir is the on-disk directory name for the scope ("long_term" lives in "long-term").
func (s MemoryScope) Dir() string {
	return strings.ReplaceAll(string(s), "_", "-")
}

// ParseMemoryScope accepts both the scope name and its directory form.
func ParseMemoryScope(raw string) (MemoryScope, error) {
	normalized := MemoryScope(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	if !normalized.Valid() {
		return "", fmt.Errorf("unsupported memory scope %q", raw)
	}
	return normalized, nil
}

type MemoryEntry struct {
	ID        string
	Type      MemoryType
	Category  string
	Content   string
	Tags      []string
	CreatedAt time.Time
	Scope     MemoryScope
}

func (e MemoryEntry) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unsupported memory type %q", e.Type)
	}
	if !e.Scope.Valid() {
		return fmt.Errorf("unsupported memory scope %q", e.Scope)
	}
	if err := ValidateCategory(e.Category); err != nil {
		return err
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("content is required")
	}

	return nil
}

// ValidateCategory rejects names that cannot be used as a store file name.
func ValidateCategory(category string) error {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return fmt.Errorf("category is required")
	}
	if strings.ContainsAny(trimmed, `/\`) || strings.HasPrefix(trimmed, ".") {
		return fmt.Errorf("invalid category %q", category)
	}
	return nil
}

// NormalizeTags lower-cases, trims and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

// StoredEntry is an entry together with its recall weight.
type StoredEntry struct {
	Entry  MemoryEntry
	Weight float64
}

type ScoredEntry struct {
	Entry     MemoryEntry
	Relevance float64
}

type CategoryStats struct {
	Scope    MemoryScope
	Category string
	Entries  int
}
