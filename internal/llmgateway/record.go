package llmgateway

import "time"

// CallRecord audits one Complete call, cached or not, successful or not
// (§4.A point 4); retried attempts within the call are counted in Retries.
// The gateway appends one per call, never mutating a prior record.
type CallRecord struct {
	ID               string
	Timestamp        time.Time
	Model            string
	AgentID          string
	Step             int
	Seed             *int64
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	LatencyMS        int64
	Cached           bool
	Retries          int
	Error            string
}
