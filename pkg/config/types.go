// Package config loads the tool registry: the declarative, per-document-kind
// set of search tools the query engine dispatches against. It follows the
// teacher's YAML-plus-built-in-defaults loading style (dario.cat/mergo
// merge, os.Expand environment expansion, gopkg.in/yaml.v3 parsing).
package config

// MetadataHints declares the allowed filter values and content-classification
// keyword maps for one tool's document kind.
type MetadataHints struct {
	SupportedFormats          []string            `yaml:"supported_formats,omitempty"`
	SupportedComplexityLevels []string            `yaml:"supported_complexity_levels,omitempty"`
	SupportedCategories       []string            `yaml:"supported_categories,omitempty"`
	SupportedTopics           []string            `yaml:"supported_topics,omitempty"`
	SupportsAPIVersion        bool                `yaml:"supports_api_version,omitempty"`
	TopicKeywords             map[string][]string `yaml:"topic_keywords,omitempty"`
	CategoryKeywords          map[string][]string `yaml:"category_keywords,omitempty"`
}

// ToolConfig is one entry in the registry: a named, document-kind-scoped
// search tool plus the metadata filters and keyword maps it accepts.
type ToolConfig struct {
	Name          string         `yaml:"name" validate:"required"`
	Description   string         `yaml:"description"`
	DocType       string         `yaml:"docType" validate:"required"`
	Title         string         `yaml:"title"`
	MetadataHints *MetadataHints `yaml:"metadataHints,omitempty"`
}

// ToolsYAMLConfig is the on-disk shape of the tool registry configuration
// file: a flat map of tool name -> ToolConfig.
type ToolsYAMLConfig struct {
	Tools map[string]ToolConfig `yaml:"tools"`
}
