package queryengine

import (
	"fmt"
	"strings"
)

const previewChars = 1000

// formatContent renders content per its adaptive formatting rules, keyed off
// the document's format (bob/msc diagrams, pdf summaries, markdown, or a
// plain truncated preview).
func formatContent(format, content string, metadata map[string]any) (rendered string, isDiagram bool) {
	switch strings.ToLower(format) {
	case "bob", "msc":
		return "```" + format + "\n" + content + "\n```", true
	case "pdf":
		return formatPDFSummary(content, metadata), false
	case "markdown", "":
		if hasMarkdownHeaders(content) {
			return content, false
		}
		return "```\n" + truncate(content, previewChars) + "\n```", false
	default:
		return truncate(content, previewChars), false
	}
}

func hasMarkdownHeaders(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return true
		}
	}
	return false
}

// formatPDFSummary renders a size/page-count/path header followed by a
// preview of the first ~1000 characters.
func formatPDFSummary(content string, metadata map[string]any) string {
	size := len(content)
	pages, _ := metadata["page_count"]
	path, _ := metadata["path"]
	return fmt.Sprintf("PDF document — %d bytes, %v pages, path: %v\n\n%s",
		size, pages, path, truncate(content, previewChars))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// attribution picks the source-attribution label: crate name for Rust docs,
// method+endpoint+version for API docs, else the source name.
func attribution(docType, sourceName string, metadata map[string]any) string {
	switch docType {
	case "crate":
		if crate, ok := metadata["crate"].(string); ok && crate != "" {
			return crate
		}
	case "api":
		method, _ := metadata["method"].(string)
		endpoint, _ := metadata["endpoint"].(string)
		version, _ := metadata["api_version"].(string)
		if method != "" || endpoint != "" {
			if version != "" {
				return fmt.Sprintf("%s %s (%s)", method, endpoint, version)
			}
			return fmt.Sprintf("%s %s", method, endpoint)
		}
	}
	return "source: " + sourceName
}

// relevanceScore implements 1 - min(position*0.1, 0.5).
func relevanceScore(position int) float64 {
	penalty := float64(position) * 0.1
	if penalty > 0.5 {
		penalty = 0.5
	}
	return 1 - penalty
}
