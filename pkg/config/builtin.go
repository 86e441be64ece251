package config

// GetBuiltinTools returns the registry's built-in tool set, present even
// when no tools.yaml is found so a fresh deployment still boots with
// working defaults.
func GetBuiltinTools() map[string]ToolConfig {
	return map[string]ToolConfig{
		"rust_crate_docs": {
			Name:        "rust_crate_docs",
			Description: "Search Rust crate documentation: API references, guides, and examples.",
			DocType:     "crate",
			Title:       "Rust Crate Documentation",
			MetadataHints: &MetadataHints{
				SupportedFormats:          []string{"markdown", "bob", "msc"},
				SupportedComplexityLevels: []string{"beginner", "intermediate", "advanced"},
				SupportedCategories:       []string{"guide", "reference", "example"},
				SupportedTopics:           []string{"async", "error-handling", "serialization", "networking", "concurrency"},
				TopicKeywords: map[string][]string{
					"async":           {"async", "await", "future", "tokio", "executor"},
					"error-handling":  {"error", "result", "panic", "unwrap", "anyhow"},
					"serialization":   {"serde", "serialize", "deserialize", "json", "yaml"},
					"networking":      {"tcp", "http", "socket", "connection", "client"},
					"concurrency":     {"thread", "mutex", "channel", "arc", "send"},
				},
				CategoryKeywords: map[string][]string{
					"guide":     {"getting started", "tutorial", "walkthrough", "introduction"},
					"reference": {"struct", "trait", "enum", "function signature"},
					"example":   {"example", "sample", "demo"},
				},
			},
		},
		"api_docs": {
			Name:        "api_docs",
			Description: "Search REST/HTTP API documentation by endpoint, method, and version.",
			DocType:     "api",
			Title:       "API Reference",
			MetadataHints: &MetadataHints{
				SupportedFormats:          []string{"markdown", "pdf"},
				SupportedComplexityLevels: []string{"beginner", "intermediate", "advanced"},
				SupportedCategories:       []string{"endpoint", "authentication", "schema"},
				SupportedTopics:           []string{"pagination", "webhooks", "rate-limits", "auth"},
				SupportsAPIVersion:        true,
				TopicKeywords: map[string][]string{
					"pagination":  {"page", "cursor", "offset", "limit"},
					"webhooks":    {"webhook", "callback", "event subscription"},
					"rate-limits": {"rate limit", "throttle", "429", "quota"},
					"auth":        {"oauth", "api key", "bearer", "token"},
				},
				CategoryKeywords: map[string][]string{
					"endpoint":       {"GET ", "POST ", "PUT ", "DELETE ", "endpoint"},
					"authentication": {"authenticate", "authorization header", "credential"},
					"schema":         {"schema", "request body", "response body"},
				},
			},
		},
		"web_docs": {
			Name:        "web_docs",
			Description: "Search general web documentation ingested from arbitrary URLs.",
			DocType:     "web",
			Title:       "Web Documentation",
			MetadataHints: &MetadataHints{
				SupportedFormats:          []string{"markdown", "pdf", "bob"},
				SupportedComplexityLevels: []string{"beginner", "intermediate", "advanced"},
				SupportedCategories:       []string{"article", "reference", "faq"},
				SupportedTopics:           []string{"installation", "configuration", "troubleshooting"},
				TopicKeywords: map[string][]string{
					"installation":    {"install", "setup", "download"},
					"configuration":   {"configure", "settings", "options", "config file"},
					"troubleshooting": {"error", "issue", "troubleshoot", "debug"},
				},
				CategoryKeywords: map[string][]string{
					"article":   {"overview", "introduction"},
					"reference": {"reference", "specification"},
					"faq":       {"faq", "frequently asked"},
				},
			},
		},
	}
}
