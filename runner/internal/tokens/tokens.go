package tokens

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Separator divides tokens in a raw TOKEN value.
const Separator = ","

// Normalize splits raw into its comma-separated tokens, preserving order.
// An empty raw value yields an empty (non-nil) slice.
func Normalize(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, Separator)
}

// NormalizeTrimmed is like Normalize but trims whitespace around each token
// and drops tokens that are empty after trimming.
func NormalizeTrimmed(raw string) []string {
	out := []string{}
	for _, tok := range Normalize(raw) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Render encodes tokens as a JSON array of strings. A nil slice renders as [].
func Render(tokens []string) (json.RawMessage, error) {
	if tokens == nil {
		tokens = []string{}
	}
	b, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("tokens: render: %w", err)
	}
	return b, nil
}

// Redact returns a log-safe form of tok showing only its last four characters.
func Redact(tok string) string {
	const visible = 4
	runes := []rune(tok)
	if len(runes) <= visible {
		return strings.Repeat("*", len(runes))
	}
	return "..." + string(runes[len(runes)-visible:])
}
