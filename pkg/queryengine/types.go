// Package queryengine implements a config-driven tool registry dispatch
// that routes a query to the right document kind, applies
// metadata filters, runs hybrid lexical/vector search with a discovery
// short-circuit, and adaptively formats results per their content format.
package queryengine

import (
	"errors"
)

// Request is the inbound query shape accepted by every tool.
type Request struct {
	Query      string  `json:"query"`
	Limit      int     `json:"limit,omitempty"`
	Format     *string `json:"format,omitempty"`
	Complexity *string `json:"complexity,omitempty"`
	Category   *string `json:"category,omitempty"`
	Topic      *string `json:"topic,omitempty"`
	APIVersion *string `json:"api_version,omitempty"`
}

// DefaultLimit and the clamped range for Request.Limit.
const (
	DefaultLimit = 5
	MinLimit     = 1
	MaxLimit     = 20
)

// ErrEmptyQuery is returned when Request.Query is blank.
var ErrEmptyQuery = errors.New("queryengine: query is required")

// ErrInvalidFilterValue is returned when a filter value isn't in the tool's
// configured enumeration for that kind.
var ErrInvalidFilterValue = errors.New("queryengine: invalid filter value")

// Result is one formatted hit in a Response.
type Result struct {
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Relevance  float64 `json:"relevance"`
	Format     string  `json:"format"`
	Content    string  `json:"content"`
	DiagramTag bool    `json:"diagram,omitempty"`
}

// CatalogEntry groups documents under a coarse path-prefix category for the
// discovery short-circuit response.
type CatalogEntry struct {
	Category string   `json:"category"`
	Paths    []string `json:"paths"`
}

// Response is the dispatch outcome: either search Results or, when the
// discovery short-circuit fires, a Catalog.
type Response struct {
	Results     []Result       `json:"results,omitempty"`
	Catalog     []CatalogEntry `json:"catalog,omitempty"`
	IsDiscovery bool           `json:"is_discovery"`
}
