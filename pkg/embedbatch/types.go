package embedbatch

import "time"

// Status is the lifecycle state of an embedding batch.
type Status string

const (
	// StatusAccepting is the single open batch still collecting requests.
	StatusAccepting Status = "accepting"
	// StatusReady has stopped accepting new requests and is waiting to be
	// uploaded and submitted to the remote batch facility.
	StatusReady Status = "ready"
	// StatusSubmitted has been handed to the remote facility and is queued
	// there.
	StatusSubmitted Status = "submitted"
	// StatusProcessing is actively being processed remotely.
	StatusProcessing Status = "processing"
	// StatusCompleted finished successfully; results are available.
	StatusCompleted Status = "completed"
	// StatusFailed finished with an unrecoverable remote error.
	StatusFailed Status = "failed"
	// StatusCancelled was cancelled before or during remote processing.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Request is a single text awaiting embedding, tagged with a caller-supplied
// custom ID used to correlate results back to documents/chunks.
type Request struct {
	CustomID string
	Text     string
}

// Result is the embedding (or error) for one Request, matched by CustomID.
// TokensUsed comes from the batch output file's usage.total_tokens and is
// zero for error results.
type Result struct {
	CustomID   string
	Vector     []float32
	TokensUsed int64
	Err        string
}

// CostInfo reports the cost of a batch versus the synchronous equivalent.
// Before completion EstimatedTokens/the cost fields are the char/4 proxy
// from §4.1; once a batch completes, Poll recomputes them from the actual
// TokensUsed summed across results. The batch API is priced at half the
// synchronous rate, so SavingsPercent is exactly 50 whenever tokens > 0 and
// the configured batch rate is half the sync rate.
type CostInfo struct {
	EstimatedTokens int64
	TokensUsed      int64
	SyncCostMicros  int64
	BatchCostMicros int64
	SavingsMicros   int64
	SavingsPercent  float64
}

// Batch is one unit of work submitted to (or accumulating for) the remote
// batch embedding facility.
type Batch struct {
	ID            string
	Status        Status
	Model         string
	Requests      []Request
	Results       []Result
	RemoteBatchID string
	RemoteFileID  string
	CreatedAt     time.Time
	SubmittedAt   time.Time
	CompletedAt   time.Time
	Error         string
	Cost          CostInfo
	// ResultsConsumed marks that a completed batch's Results have already
	// been handed to a caller via DrainCompleted, so a later poll tick
	// doesn't hand the same results back twice.
	ResultsConsumed bool
}

// EstimatedTokens returns a coarse token estimate for the batch's text,
// using the common heuristic of four characters per token.
func (b *Batch) EstimatedTokens() int64 {
	var chars int64
	for _, r := range b.Requests {
		chars += int64(len(r.Text))
	}
	return chars / 4
}
