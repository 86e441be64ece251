package embedbatch

import (
	"bufio"
	"encoding/json"
	"io"
)

// outputLine is one JSONL record in the Batch API's output file.
type outputLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int `json:"status_code"`
		Body       struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
			Usage struct {
				TotalTokens int64 `json:"total_tokens"`
			} `json:"usage"`
		} `json:"body"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// parseBatchOutput reads the Batch API's JSONL output file into Results,
// one per line, tolerating a mix of successes and per-line errors.
func parseBatchOutput(r io.Reader) ([]Result, error) {
	var results []Result
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var out outputLine
		if err := json.Unmarshal(line, &out); err != nil {
			return nil, err
		}

		res := Result{CustomID: out.CustomID}
		switch {
		case out.Error != nil:
			res.Err = out.Error.Message
		case out.Response != nil && len(out.Response.Body.Data) > 0:
			res.Vector = out.Response.Body.Data[0].Embedding
			res.TokensUsed = out.Response.Body.Usage.TotalTokens
		default:
			res.Err = "batch output line missing both response and error"
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
