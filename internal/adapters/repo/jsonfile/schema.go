package jsonfile

import (
	"fmt"
	"time"

	"github.com/bnema/hivemind/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int                `json:"version"`
	Entries []entrySchema      `json:"entries"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

type entrySchema struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Category  string   `json:"category"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
	Scope     string   `json:"scope"`
}

func toSchema(entry domain.MemoryEntry) entrySchema {
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}

	return entrySchema{
		ID:        entry.ID,
		Type:      string(entry.Type),
		Category:  entry.Category,
		Content:   entry.Content,
		Tags:      append([]string(nil), tags...),
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		Scope:     string(entry.Scope),
	}
}

func (s entrySchema) toDomain(scope domain.MemoryScope, category string) (domain.MemoryEntry, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		return domain.MemoryEntry{}, fmt.Errorf("entry %s: parse createdAt: %w", s.ID, err)
	}

	// Location wins over what the file claims; a hand-moved file stays consistent.
	return domain.MemoryEntry{
		ID:        s.ID,
		Type:      domain.MemoryType(s.Type),
		Category:  category,
		Content:   s.Content,
		Tags:      append([]string(nil), s.Tags...),
		CreatedAt: createdAt,
		Scope:     scope,
	}, nil
}

func (f *fileSchema) weightOf(id string) float64 {
	if w, ok := f.Weights[id]; ok && w > 0 {
		return w
	}
	return 1
}

func (f *fileSchema) indexOf(id string) int {
	for i := range f.Entries {
		if f.Entries[i].ID == id {
			return i
		}
	}
	return -1
}
