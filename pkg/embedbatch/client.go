package embedbatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig configures the go-openai backed remote batch facility.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the RemoteClient implementation backed by the OpenAI-compatible
// Batch API, following the same client construction style as
// open-rails-searchkit's embedder package.
type Client struct {
	api *openai.Client
}

// NewClient builds a Client against an OpenAI-compatible batch endpoint.
func NewClient(cfg ClientConfig) *Client {
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	openaiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: openai.NewClientWithConfig(openaiCfg)}
}

// batchLine is one JSONL record in the uploaded batch input file, matching
// the OpenAI Batch API's embeddings request shape.
type batchLine struct {
	CustomID string    `json:"custom_id"`
	Method   string    `json:"method"`
	URL      string    `json:"url"`
	Body     batchBody `json:"body"`
}

type batchBody struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// UploadAndSubmit encodes requests as a JSONL batch input file, uploads it,
// and creates a batch job against the embeddings endpoint.
func (c *Client) UploadAndSubmit(ctx context.Context, model string, requests []Request) (string, string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range requests {
		line := batchLine{
			CustomID: r.CustomID,
			Method:   http.MethodPost,
			URL:      "/v1/embeddings",
			Body:     batchBody{Model: model, Input: r.Text},
		}
		if err := enc.Encode(line); err != nil {
			return "", "", fmt.Errorf("embedbatch: encode batch line: %w", err)
		}
	}

	file, err := c.api.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    "batch-input.jsonl",
		Bytes:   buf.Bytes(),
		Purpose: openai.PurposeBatch,
	})
	if err != nil {
		return "", "", fmt.Errorf("embedbatch: upload batch input: %w", err)
	}

	batch, err := c.api.CreateBatch(ctx, openai.CreateBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         openai.BatchEndpointEmbeddings,
		CompletionWindow: "24h",
	})
	if err != nil {
		return "", "", fmt.Errorf("embedbatch: create batch: %w", err)
	}
	return batch.ID, file.ID, nil
}

// Retrieve fetches the current status of a remote batch and, once
// completed, downloads and parses the output file into Results.
func (c *Client) Retrieve(ctx context.Context, remoteBatchID string) (Status, []Result, string, error) {
	batch, err := c.api.RetrieveBatch(ctx, remoteBatchID)
	if err != nil {
		return "", nil, "", fmt.Errorf("embedbatch: retrieve batch: %w", err)
	}

	status := mapRemoteStatus(string(batch.Status))
	if status != StatusCompleted {
		errMsg := ""
		if status == StatusFailed {
			errMsg = remoteFailureMessage(batch)
		}
		return status, nil, errMsg, nil
	}

	if batch.OutputFileID == "" {
		return StatusFailed, nil, "batch completed without an output file", nil
	}

	content, err := c.api.GetFileContent(ctx, batch.OutputFileID)
	if err != nil {
		return "", nil, "", fmt.Errorf("embedbatch: fetch batch output: %w", err)
	}
	defer content.Close()

	results, err := parseBatchOutput(content)
	if err != nil {
		return "", nil, "", fmt.Errorf("embedbatch: parse batch output: %w", err)
	}
	return StatusCompleted, results, "", nil
}

// Cancel requests cancellation of an in-flight remote batch.
func (c *Client) Cancel(ctx context.Context, remoteBatchID string) error {
	_, err := c.api.CancelBatch(ctx, remoteBatchID)
	if err != nil {
		return fmt.Errorf("embedbatch: cancel batch: %w", err)
	}
	return nil
}

func mapRemoteStatus(remote string) Status {
	switch remote {
	case "validating", "in_progress", "finalizing":
		return StatusProcessing
	case "completed":
		return StatusCompleted
	case "failed", "expired":
		return StatusFailed
	case "cancelled", "cancelling":
		return StatusCancelled
	default:
		return StatusProcessing
	}
}

func remoteFailureMessage(batch openai.Batch) string {
	if batch.Errors == nil || len(batch.Errors.Data) == 0 {
		return "batch failed"
	}
	return batch.Errors.Data[0].Message
}
