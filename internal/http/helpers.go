package http

import (
	"strings"

	"github.com/dustin/go-humanize"

	"hoteldash/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// comma formats a count with thousands separators.
func comma(n int) string {
	return humanize.Comma(int64(n))
}

// option is one entry of a selector widget.
type option struct {
	Value    string
	Selected bool
}

func options(values []string, selected string) []option {
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: v, Selected: v == selected}
	}
	return out
}

var templateFuncs = map[string]any{
	"si":    core.FormatSI,
	"comma": comma,
}
