package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyComplexityBeginner(t *testing.T) {
	assert.Equal(t, "beginner", classifyComplexity("Getting Started with widgets."))
	assert.Equal(t, "beginner", classifyComplexity("short"))
}

func TestClassifyComplexityAdvanced(t *testing.T) {
	long := strings.Repeat("x", 6000)
	assert.Equal(t, "advanced", classifyComplexity(long))
	assert.Equal(t, "advanced", classifyComplexity("This covers an advanced implementation detail. "+strings.Repeat("y", 1200)))
}

func TestClassifyComplexityIntermediateDefault(t *testing.T) {
	content := strings.Repeat("z", 2000)
	assert.Equal(t, "intermediate", classifyComplexity(content))
}

func TestClassifyByKeywordsPicksTopScorer(t *testing.T) {
	keywords := map[string][]string{
		"async": {"async", "tokio"},
		"error-handling": {"error", "panic"},
	}
	topic := classifyByKeywords(keywords, "this crate uses async and tokio heavily, tokio tokio", "src/async/mod.rs")
	assert.Equal(t, "async", topic)
}

func TestClassifyFormatFallsBackToFirstAllowed(t *testing.T) {
	tool := ToolConfig{MetadataHints: &MetadataHints{SupportedFormats: []string{"markdown", "pdf"}}}
	assert.Equal(t, "markdown", classifyFormat(tool, "docs/readme.unknownext"))
	assert.Equal(t, "pdf", classifyFormat(tool, "docs/readme.pdf"))
}

func TestClassifyMetadataIncludesAllFields(t *testing.T) {
	tool := GetBuiltinTools()["rust_crate_docs"]
	meta := ClassifyMetadata(tool, "Getting started with async tokio usage.", "src/lib.rs")
	assert.Equal(t, "markdown", meta["format"])
	assert.Equal(t, "beginner", meta["complexity"])
	assert.Equal(t, "async", meta["topic"])
	assert.Equal(t, "guide", meta["category"])
}
