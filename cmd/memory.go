package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/domain"
)

func newMemoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Store, recall and curate shared memory",
	}

	cmd.AddCommand(
		newMemoryStoreCmd(c),
		newMemoryRecallCmd(c),
		newMemoryForgetCmd(c),
		newMemoryWeightCmd(c, true),
		newMemoryWeightCmd(c, false),
		newMemoryListCmd(c),
	)
	return cmd
}

type memoryJSON struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Scope     string    `json:"scope"`
	CreatedAt time.Time `json:"createdAt"`
	Relevance float64   `json:"relevance,omitempty"`
	Weight    float64   `json:"weight,omitempty"`
}

func toMemoryJSON(entry domain.MemoryEntry) memoryJSON {
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	return memoryJSON{
		ID:        entry.ID,
		Type:      string(entry.Type),
		Category:  entry.Category,
		Content:   entry.Content,
		Tags:      tags,
		Scope:     string(entry.Scope),
		CreatedAt: entry.CreatedAt,
	}
}

func parseScopeFlag(raw string) (*domain.MemoryScope, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	scope, err := domain.ParseMemoryScope(raw)
	if err != nil {
		return nil, err
	}
	return &scope, nil
}

func newMemoryStoreCmd(c *cli) *cobra.Command {
	var (
		memType  string
		category string
		tags     []string
		scope    string
	)

	cmd := &cobra.Command{
		Use:   "store <content...>",
		Short: "Store a memory entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedScope, err := domain.ParseMemoryScope(scope)
			if err != nil {
				return err
			}

			entry, err := c.app.memory.Store(cmd.Context(), domain.MemoryType(strings.ToLower(memType)), category, strings.Join(args, " "), tags, parsedScope)
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), toMemoryJSON(entry))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s [%s/%s]\n", entry.ID, entry.Type, entry.Category)
			return err
		},
	}

	cmd.Flags().StringVar(&memType, "type", string(domain.MemoryTypeFact), "fact, decision, preference, rule, pattern or anti_pattern")
	cmd.Flags().StringVar(&category, "category", "learnings", "Category file the entry is stored in")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&scope, "scope", string(domain.ScopeLongTerm), "session, long_term or episodic")
	return cmd
}

func newMemoryRecallCmd(c *cli) *cobra.Command {
	var (
		scope string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "recall [query...]",
		Short: "Search memory by relevance; no query lists newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedScope, err := parseScopeFlag(scope)
			if err != nil {
				return err
			}

			found, err := c.app.memory.Recall(cmd.Context(), strings.Join(args, " "), parsedScope)
			if err != nil {
				return err
			}
			if limit > 0 && len(found) > limit {
				found = found[:limit]
			}

			if c.opts.asJSON {
				views := make([]memoryJSON, 0, len(found))
				for _, s := range found {
					v := toMemoryJSON(s.Entry)
					v.Relevance = s.Relevance
					views = append(views, v)
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				_, err := fmt.Fprintln(out, "No memories found.")
				return err
			}
			for _, s := range found {
				writeMemoryLine(out, s.Entry, fmt.Sprintf("%.2f", s.Relevance))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Restrict to one scope")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results (0 = all)")
	return cmd
}

func newMemoryForgetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete a memory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := c.app.memory.Forget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("memory %s not found", args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", args[0])
			return err
		},
	}
}

func newMemoryWeightCmd(c *cli, boost bool) *cobra.Command {
	use, short := "decay <id>", "Halve the recall weight of an entry"
	if boost {
		use, short = "boost <id>", "Raise the recall weight of an entry"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scale := c.app.memory.Decay
			if boost {
				scale = c.app.memory.Boost
			}
			weight, ok, err := scale(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("memory %s not found", args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s weight %.2f\n", args[0], weight)
			return err
		},
	}
}

func newMemoryListCmd(c *cli) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memory entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsedScope, err := parseScopeFlag(scope)
			if err != nil {
				return err
			}

			entries, err := c.app.memory.List(cmd.Context(), parsedScope)
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				views := make([]memoryJSON, 0, len(entries))
				for _, e := range entries {
					v := toMemoryJSON(e.Entry)
					v.Weight = e.Weight
					views = append(views, v)
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "No memories stored.")
				return err
			}
			for _, e := range entries {
				writeMemoryLine(out, e.Entry, fmt.Sprintf("w%.2f", e.Weight))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Restrict to one scope")
	return cmd
}

func writeMemoryLine(out io.Writer, entry domain.MemoryEntry, score string) {
	line := fmt.Sprintf("%s  %-5s [%s/%s] %s", entry.ID, score, entry.Type, entry.Category, sanitizeForTerminal(entry.Content))
	if len(entry.Tags) > 0 {
		line += "  #" + strings.Join(entry.Tags, " #")
	}
	fmt.Fprintln(out, line)
}
