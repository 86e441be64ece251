package config

import (
	"path/filepath"
	"strings"
)

// ClassifyMetadata derives format/complexity/topic/category metadata for a
// document from its content and path, driven by a tool's MetadataHints. It
// is exposed for the external parser/ingest collaborator to call; the
// registry owns the keyword tables and enumerations that drive the scoring.
func ClassifyMetadata(tool ToolConfig, content, path string) map[string]string {
	out := map[string]string{
		"format":     classifyFormat(tool, path),
		"complexity": classifyComplexity(content),
	}
	if tool.MetadataHints == nil {
		return out
	}
	if topic := classifyByKeywords(tool.MetadataHints.TopicKeywords, content, path); topic != "" {
		out["topic"] = topic
	}
	if category := classifyByKeywords(tool.MetadataHints.CategoryKeywords, content, path); category != "" {
		out["category"] = category
	}
	return out
}

// classifyFormat picks the document's extension when it's in the tool's
// allowed format list, else falls back to the first allowed format.
func classifyFormat(tool ToolConfig, path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if tool.MetadataHints == nil || len(tool.MetadataHints.SupportedFormats) == 0 {
		if ext != "" {
			return ext
		}
		return "markdown"
	}
	for _, f := range tool.MetadataHints.SupportedFormats {
		if strings.EqualFold(f, ext) {
			return f
		}
	}
	return tool.MetadataHints.SupportedFormats[0]
}

// classifyComplexity infers a beginner/intermediate/advanced label from
// content length and lexical markers.
func classifyComplexity(content string) string {
	lower := strings.ToLower(content)
	n := len(content)

	if n < 1000 || containsAny(lower, "getting started", "introduction", "basic") {
		return "beginner"
	}
	if n > 5000 || strings.Count(content, "```") >= 6 || containsAny(lower, "advanced", "complex", "implementation") {
		return "advanced"
	}
	return "intermediate"
}

// classifyByKeywords scores each keyword-list candidate by 2 points per
// content match and 1 point per path match, returning the top scorer. Ties
// go to the alphabetically first candidate; the keyword map does not keep
// the order in which candidates were configured.
func classifyByKeywords(keywords map[string][]string, content, path string) string {
	lowerContent := strings.ToLower(content)
	lowerPath := strings.ToLower(path)

	best := ""
	bestScore := 0
	for _, candidate := range sortedKeys(keywords) {
		score := 0
		for _, kw := range keywords[candidate] {
			kw = strings.ToLower(kw)
			if strings.Contains(lowerContent, kw) {
				score += 2
			}
			if strings.Contains(lowerPath, kw) {
				score += 1
			}
		}
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best
}

// sortedKeys returns m's keys in ascending lexical order so tie-breaking is
// deterministic even though Go map iteration isn't.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func containsAny(s string, substrs...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
