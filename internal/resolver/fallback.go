package resolver

import "strings"

// Fallback markers, evaluated in priority order: the large tier wins even
// when a name also matches a medium marker (a "gpt-4 ... 70b" name still
// lands on the large tier).
var (
	largeMarkers  = []string{"gpt-4", "claude-opus", "405b"}
	mediumMarkers = []string{"claude", "gemini", "70b"}
)

func (r *Resolver) fallbackFor(public string) string {
	name := strings.ToLower(public)

	for _, marker := range largeMarkers {
		if strings.Contains(name, marker) {
			return r.tiers.Large
		}
	}
	for _, marker := range mediumMarkers {
		if strings.Contains(name, marker) {
			return r.tiers.Medium
		}
	}
	return r.tiers.Small
}
