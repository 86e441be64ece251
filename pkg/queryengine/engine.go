package queryengine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/5dlabs/docs-mcp/pkg/config"
	"github.com/5dlabs/docs-mcp/pkg/database"
)

// Store is the subset of the document store adapter the query engine reads
// through, satisfied by *database.Store.
type Store interface {
	Search(ctx context.Context, query string, opts database.SearchOptions) ([]database.Hit, error)
	VectorSearch(ctx context.Context, embedding []float32, opts database.SearchOptions) ([]database.Hit, error)
	GetDocumentByID(ctx context.Context, id uuid.UUID) (database.Document, error)
	FindByKind(ctx context.Context, kind string, limit int) ([]database.Document, error)
}

// Embedder generates a query embedding for the vector-search-first
// strategy. Absence of an Embedder (nil) is treated the same as a failed
// embedding call: fall back to text search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine dispatches queries to the right tool by document kind, applies
// metadata filters, runs hybrid search with a discovery short-circuit, and
// adaptively formats results.
type Engine struct {
	registry *config.Registry
	store    Store
	embedder Embedder
}

// New builds an Engine. embedder may be nil, in which case vector search is
// always skipped in favor of the text path.
func New(registry *config.Registry, store Store, embedder Embedder) *Engine {
	return &Engine{registry: registry, store: store, embedder: embedder}
}

// Dispatch routes req to the tool registered for docType.
func (e *Engine) Dispatch(ctx context.Context, docType string, req Request) (*Response, error) {
	tool, err := e.registry.GetByDocType(docType)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < MinLimit {
		limit = MinLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	metaFilter, err := buildMetadataFilter(tool, req)
	if err != nil {
		return nil, err
	}

	if isDiscoveryQuery(req.Query) {
		catalog, err := e.discoveryCatalog(ctx, docType)
		if err != nil {
			return nil, err
		}
		return &Response{Catalog: catalog, IsDiscovery: true}, nil
	}

	hits, err := e.search(ctx, docType, req.Query, metaFilter, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for i, h := range hits {
		doc, err := e.store.GetDocumentByID(ctx, h.DocumentID)
		if err != nil {
			continue
		}
		rendered, isDiagram := formatContent(doc.Format, doc.Content, doc.Metadata)
		results = append(results, Result{
			Path:       doc.Path,
			Title:      doc.Title,
			Source:     attribution(docType, doc.SourceName, doc.Metadata),
			Relevance:  relevanceScore(i),
			Format:     doc.Format,
			Content:    rendered,
			DiagramTag: isDiagram,
		})
	}

	return &Response{Results: results}, nil
}

// buildMetadataFilter validates the request's filter fields against tool's
// configured enumerations and assembles the conjunctive predicate map
// database.SearchOptions expects.
func buildMetadataFilter(tool config.ToolConfig, req Request) (map[string]string, error) {
	out := map[string]string{}
	hints := tool.MetadataHints

	checks := []struct {
		name    string
		value   *string
		allowed []string
	}{
		{"format", req.Format, hintsOrNil(hints, func(h *config.MetadataHints) []string { return h.SupportedFormats })},
		{"complexity", req.Complexity, hintsOrNil(hints, func(h *config.MetadataHints) []string { return h.SupportedComplexityLevels })},
		{"category", req.Category, hintsOrNil(hints, func(h *config.MetadataHints) []string { return h.SupportedCategories })},
		{"topic", req.Topic, hintsOrNil(hints, func(h *config.MetadataHints) []string { return h.SupportedTopics })},
	}
	for _, c := range checks {
		if c.value == nil || *c.value == "" {
			continue
		}
		if len(c.allowed) > 0 && !contains(c.allowed, *c.value) {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidFilterValue, c.name, *c.value)
		}
		out[c.name] = *c.value
	}

	if req.APIVersion != nil && *req.APIVersion != "" {
		if hints == nil || !hints.SupportsAPIVersion {
			return nil, fmt.Errorf("%w: api_version not supported for this tool", ErrInvalidFilterValue)
		}
		out["api_version"] = *req.APIVersion
	}

	return out, nil
}

func hintsOrNil(h *config.MetadataHints, f func(*config.MetadataHints) []string) []string {
	if h == nil {
		return nil
	}
	return f(h)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// search attempts vector search first (if an Embedder is configured),
// falling back to text search on any failure. Results are
// re-ranked: path hit before content hit, then server-side rank descending
// (the store already orders text search this way; here we only promote
// path-substring hits), then by the store's own created-at ordering.
func (e *Engine) search(ctx context.Context, docType, query string, metaFilter map[string]string, limit int) ([]database.Hit, error) {
	opts := database.SearchOptions{Kind: docType, Limit: limit, Metadata: metaFilter}

	var hits []database.Hit
	var err error
	if e.embedder != nil {
		if vec, embedErr := e.embedder.Embed(ctx, query); embedErr == nil {
			hits, err = e.store.VectorSearch(ctx, vec, opts)
		}
	}
	if len(hits) == 0 || err != nil {
		hits, err = e.store.Search(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("queryengine: search: %w", err)
		}
	}

	return rerank(hits, query, limit), nil
}

// rerank promotes hits whose path contains the (lower-cased) query text
// above pure content hits, stably preserving the store's rank/created-at
// ordering within each group, then truncates to limit.
func rerank(hits []database.Hit, query string, limit int) []database.Hit {
	lowerQuery := strings.ToLower(query)
	sort.SliceStable(hits, func(i, j int) bool {
		iPathHit := strings.Contains(strings.ToLower(hits[i].Path), lowerQuery)
		jPathHit := strings.Contains(strings.ToLower(hits[j].Path), lowerQuery)
		return iPathHit && !jPathHit
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// discoveryCatalog builds a categorized catalog of a document kind's paths
// grouped by coarse path prefix, bypassing search entirely.
func (e *Engine) discoveryCatalog(ctx context.Context, docType string) ([]CatalogEntry, error) {
	docs, err := e.store.FindByKind(ctx, docType, 0)
	if err != nil {
		return nil, fmt.Errorf("queryengine: discovery catalog: %w", err)
	}

	groups := map[string][]string{}
	for _, d := range docs {
		cat := pathPrefix(d.Path)
		groups[cat] = append(groups[cat], d.Path)
	}

	out := make([]CatalogEntry, 0, len(groups))
	for cat, paths := range groups {
		sort.Strings(paths)
		out = append(out, CatalogEntry{Category: cat, Paths: paths})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
