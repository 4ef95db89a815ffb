package application

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const (
	BoostFactor = 1.5
	DecayFactor = 0.5
	MaxWeight   = 10.0
	MinWeight   = 0.1
)

type MemoryService struct {
	repo   ports.MemoryRepository
	clock  ports.Clock
	newID  func() string
	logger *zap.Logger
}

func NewMemoryService(repo ports.MemoryRepository, clock ports.Clock, logger *zap.Logger) *MemoryService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MemoryService{
		repo:   repo,
		clock:  clock,
		newID:  uuid.NewString,
		logger: logger,
	}
}

func (s *MemoryService) Store(ctx context.Context, memType domain.MemoryType, category, content string, tags []string, scope domain.MemoryScope) (domain.MemoryEntry, error) {
	entry := domain.MemoryEntry{
		ID:        s.newID(),
		Type:      memType,
		Category:  strings.TrimSpace(category),
		Content:   strings.TrimSpace(content),
		Tags:      domain.NormalizeTags(tags),
		CreatedAt: s.clock.Now().UTC(),
		Scope:     scope,
	}
	if err := entry.Validate(); err != nil {
		return domain.MemoryEntry{}, err
	}

	stored, err := s.repo.Append(ctx, entry)
	if err != nil {
		return domain.MemoryEntry{}, fmt.Errorf("store memory: %w", err)
	}
	return stored, nil
}

// Recall scores every entry of scope (all scopes when nil) against query.
//
// Relevance is the number of query terms found in the content or tags, plus one
// when the whole query appears in the content, multiplied by the entry weight.
// Zero-relevance entries are dropped. An empty query returns everything.
func (s *MemoryService) Recall(ctx context.Context, query string, scope *domain.MemoryScope) ([]domain.ScoredEntry, error) {
	entries, err := s.list(ctx, scope)
	if err != nil {
		return nil, err
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	terms := uniqueTerms(normalized)

	scored := make([]domain.ScoredEntry, 0, len(entries))
	for _, stored := range entries {
		if normalized == "" {
			scored = append(scored, domain.ScoredEntry{Entry: stored.Entry, Relevance: stored.Weight})
			continue
		}

		relevance := score(stored.Entry, normalized, terms) * stored.Weight
		if relevance <= 0 {
			continue
		}
		scored = append(scored, domain.ScoredEntry{Entry: stored.Entry, Relevance: relevance})
	}

	if normalized == "" {
		sort.SliceStable(scored, func(i, j int) bool { return newerFirst(scored[i].Entry, scored[j].Entry) })
		return scored, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Relevance != scored[j].Relevance {
			return scored[i].Relevance > scored[j].Relevance
		}
		return newerFirst(scored[i].Entry, scored[j].Entry)
	})
	return scored, nil
}

func (s *MemoryService) Forget(ctx context.Context, id string) (bool, error) {
	removed, err := s.repo.Remove(ctx, strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("forget memory %s: %w", id, err)
	}
	return removed, nil
}

func (s *MemoryService) Boost(ctx context.Context, id string) (float64, bool, error) {
	return s.scale(ctx, id, BoostFactor)
}

func (s *MemoryService) Decay(ctx context.Context, id string) (float64, bool, error) {
	return s.scale(ctx, id, DecayFactor)
}

func (s *MemoryService) scale(ctx context.Context, id string, factor float64) (float64, bool, error) {
	weight, ok, err := s.repo.ScaleWeight(ctx, strings.TrimSpace(id), factor, MinWeight, MaxWeight)
	if err != nil {
		return 0, false, fmt.Errorf("reweight memory %s: %w", id, err)
	}
	return weight, ok, nil
}

func (s *MemoryService) List(ctx context.Context, scope *domain.MemoryScope) ([]domain.StoredEntry, error) {
	entries, err := s.list(ctx, scope)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return newerFirst(entries[i].Entry, entries[j].Entry) })
	return entries, nil
}

func (s *MemoryService) Stats(ctx context.Context) ([]domain.CategoryStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}
	return stats, nil
}

// Remember stores every trigger found in text. Failures are logged, never returned.
func (s *MemoryService) Remember(ctx context.Context, text string, tags ...string) []domain.MemoryEntry {
	var stored []domain.MemoryEntry
	for _, trigger := range ExtractTriggers(text) {
		entry, err := s.Store(ctx, trigger.Type, trigger.Category, trigger.Content, append(trigger.Tags, tags...), trigger.Scope)
		if err != nil {
			s.logger.Warn("memory trigger not stored",
				zap.String("type", string(trigger.Type)),
				zap.String("category", trigger.Category),
				zap.Error(err),
			)
			continue
		}
		stored = append(stored, entry)
	}
	return stored
}

func (s *MemoryService) list(ctx context.Context, scope *domain.MemoryScope) ([]domain.StoredEntry, error) {
	var scopes []domain.MemoryScope
	if scope != nil {
		if !scope.Valid() {
			return nil, fmt.Errorf("unsupported memory scope %q", *scope)
		}
		scopes = []domain.MemoryScope{*scope}
	}

	entries, err := s.repo.List(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	return entries, nil
}

func score(entry domain.MemoryEntry, query string, terms []string) float64 {
	content := strings.ToLower(entry.Content)

	var hits float64
	for _, term := range terms {
		if strings.Contains(content, term) || tagsContain(entry.Tags, term) {
			hits++
		}
	}
	if strings.Contains(content, query) {
		hits++
	}
	return hits
}

func tagsContain(tags []string, term string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func uniqueTerms(query string) []string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		terms = append(terms, field)
	}
	return terms
}

func newerFirst(a, b domain.MemoryEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

var triggerPatterns = []struct {
	re       *regexp.Regexp
	memType  domain.MemoryType
	category string
}{
	{regexp.MustCompile(`(?i)\bremember that\s+(.+?)\.?\s*$`), domain.MemoryTypeFact, "learnings"},
	{regexp.MustCompile(`(?i)\bI prefer\s+(.+?)\.?\s*$`), domain.MemoryTypePreference, "preferences"},
	{regexp.MustCompile(`(?i)\b(always use\s+.+?)\.?\s*$`), domain.MemoryTypePreference, "preferences"},
	{regexp.MustCompile(`(?i)\bwe decided\s+(.+?)\.?\s*$`), domain.MemoryTypeDecision, "decisions"},
	{regexp.MustCompile(`(?i)^Decision:\s+(.+?)\.?\s*$`), domain.MemoryTypeDecision, "decisions"},
	{regexp.MustCompile(`(?i)^Rule:\s+(.+?)\.?\s*$`), domain.MemoryTypeRule, "rules"},
	{regexp.MustCompile(`(?i)^(never\s+.+?)\.?\s*$`), domain.MemoryTypeRule, "rules"},
	{regexp.MustCompile(`(?i)^Anti-pattern:\s+(.+?)\.?\s*$`), domain.MemoryTypeAntiPattern, "patterns"},
	{regexp.MustCompile(`(?i)^Pattern:\s+(.+?)\.?\s*$`), domain.MemoryTypePattern, "patterns"},
}

// ExtractTriggers scans text line by line for memory phrases. At most one
// entry is produced per line and identical entries are reported once. The
// returned entries carry no id or timestamp.
func ExtractTriggers(text string) []domain.MemoryEntry {
	var out []domain.MemoryEntry
	seen := map[string]struct{}{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*> "))
		if line == "" {
			continue
		}

		for _, p := range triggerPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			content := strings.TrimSpace(m[1])
			if content == "" {
				continue
			}

			key := string(p.memType) + "\x00" + strings.ToLower(content)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				out = append(out, domain.MemoryEntry{
					Type:     p.memType,
					Category: p.category,
					Content:  content,
					Scope:    domain.ScopeLongTerm,
				})
			}
			break
		}
	}

	return out
}
