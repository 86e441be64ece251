package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatContentBobDiagram(t *testing.T) {
	rendered, isDiagram := formatContent("bob", "+---+\n|box|\n+---+", nil)
	assert.True(t, isDiagram)
	assert.Contains(t, rendered, "```bob")
}

func TestFormatContentMarkdownWithHeaders(t *testing.T) {
	rendered, isDiagram := formatContent("markdown", "# Title\nbody", nil)
	assert.False(t, isDiagram)
	assert.Equal(t, "# Title\nbody", rendered)
}

func TestFormatContentMarkdownWithoutHeadersWrapsInFence(t *testing.T) {
	rendered, _ := formatContent("markdown", "plain text, no headers", nil)
	assert.Contains(t, rendered, "```")
}

func TestFormatContentPDFSummary(t *testing.T) {
	rendered, _ := formatContent("pdf", "page content", map[string]any{"page_count": 12, "path": "doc.pdf"})
	assert.Contains(t, rendered, "12 pages")
}

func TestAttributionCrate(t *testing.T) {
	assert.Equal(t, "tokio", attribution("crate", "other", map[string]any{"crate": "tokio"}))
}

func TestAttributionAPIWithVersion(t *testing.T) {
	meta := map[string]any{"method": "GET", "endpoint": "/v1/users", "api_version": "v1"}
	assert.Equal(t, "GET /v1/users (v1)", attribution("api", "src", meta))
}

func TestAttributionDefault(t *testing.T) {
	assert.Equal(t, "source: tokio", attribution("crate", "tokio", map[string]any{}))
}

func TestRelevanceScoreDecaysAndCaps(t *testing.T) {
	assert.Equal(t, 1.0, relevanceScore(0))
	assert.InDelta(t, 0.9, relevanceScore(1), 1e-9)
	assert.Equal(t, 0.5, relevanceScore(10))
}
