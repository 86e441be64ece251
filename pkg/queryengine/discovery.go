package queryengine

import "strings"

// discoveryPhrases are surface forms that signal "enumerate available
// items" rather than "search". Matching is a lower-cased substring test
// against the whole query.
var discoveryPhrases = []string{
	"list endpoints",
	"available endpoints",
	"api overview",
	"list documents",
	"what documents",
	"list topics",
	"available topics",
	"list crates",
	"what's available",
	"show me everything",
}

// isDiscoveryQuery reports whether query's lower-cased form contains any
// configured discovery phrase.
func isDiscoveryQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, phrase := range discoveryPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// pathPrefix returns the first path segment as a coarse category label
// e.g. "src/async/mod.rs" -> "src", falling back to "root" for a bare
// filename.
func pathPrefix(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	idx := strings.Index(trimmed, "/")
	if idx <= 0 {
		return "root"
	}
	return trimmed[:idx]
}
