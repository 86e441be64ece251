package embedbatch

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// QueryEmbedder generates a single synchronous embedding for a query string,
// satisfying queryengine.Embedder. It shares the batch engine's go-openai
// client construction but calls the plain (non-batch) embeddings endpoint,
// since a live search request cannot wait for batch turnaround.
type QueryEmbedder struct {
	api   *openai.Client
	model string
}

// NewQueryEmbedder builds a QueryEmbedder against the same OpenAI-compatible
// endpoint as Client, using model as the embeddings model.
func NewQueryEmbedder(cfg ClientConfig, model string) *QueryEmbedder {
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}
	return &QueryEmbedder{api: openai.NewClientWithConfig(openaiCfg), model: model}
}

// Embed returns the embedding vector for text, or an error the caller should
// treat as a signal to fall back to lexical search.
func (e *QueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedbatch: embed query: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedbatch: embed query: empty response")
	}
	return resp.Data[0].Embedding, nil
}
