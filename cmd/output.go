package cmd

import (
	"encoding/json"
	"io"
	"strings"
	"unicode"

	"github.com/bnema/hivemind/internal/adapters/render"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, value)
}

func renderMarkdown(md string) string {
	return render.Markdown(md, 0)
}
