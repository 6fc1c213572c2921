package translate

import "strings"

// Markers bracketing a reasoning trace inside plain content.
const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"
)

// HasInlineThinking reports whether content looks like a model that
// embedded its reasoning as plain text: it must open with the start marker
// and contain a matching end marker.
func HasInlineThinking(content string) bool {
	return strings.HasPrefix(content, ThinkStart) && strings.Contains(content, ThinkEnd)
}

// SplitInlineThinking separates embedded reasoning blocks from the visible
// answer. Multiple blocks are supported; an unterminated block counts as
// reasoning to the end of the text. Both sides come back trimmed.
func SplitInlineThinking(text string) (content string, reasoning string) {
	var visible strings.Builder
	var trace strings.Builder

	rest := text
	for {
		before, after, found := strings.Cut(rest, ThinkStart)
		visible.WriteString(before)
		if !found {
			break
		}

		inner, tail, closed := strings.Cut(after, ThinkEnd)
		trace.WriteString(inner)
		if !closed {
			break
		}
		rest = tail
	}

	return strings.TrimSpace(visible.String()), strings.TrimSpace(trace.String())
}

// WrapThinking renders a reasoning trace ahead of the visible answer in the
// same bracketed form the streaming path emits.
func WrapThinking(reasoning, content string) string {
	return ThinkStart + "\n" + reasoning + "\n" + ThinkEnd + "\n\n" + content
}
