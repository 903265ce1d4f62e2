package types

import "time"

// Action is the classification outcome for a scanned message.
type Action string

const (
	ActionKeep   Action = "keep"
	ActionDelete Action = "delete"
)

// MessageSummary holds the header-derived view of a single unread message.
// A zero Date means the message carried no parsable Date header.
type MessageSummary struct {
	ID         uint32    `json:"id"`
	Sender     string    `json:"sender"`
	SenderFull string    `json:"sender_full"`
	Subject    string    `json:"subject"`
	Date       time.Time `json:"date"`
}

// Classification is the result of running a message through the ruleset.
type Classification struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Candidate is a message selected for deletion, with the rule that matched.
type Candidate struct {
	MessageSummary
	Reason string `json:"reason"`
}

// ScanResult accumulates the outcome of one scan pass over the unread set.
// After every fully consumed batch, len(Candidates)+Kept == Processed and
// Processed <= Total. Skipped messages count in neither tally.
type ScanResult struct {
	Total      int         `json:"total"`
	Processed  int         `json:"processed"`
	Kept       int         `json:"kept"`
	Skipped    int         `json:"skipped"`
	Candidates []Candidate `json:"candidates"`
	Stopped    bool        `json:"stopped"`
}

// Progress is emitted after each batch for observability.
type Progress struct {
	Batch     int           `json:"batch"`
	Batches   int           `json:"batches"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Elapsed   time.Duration `json:"elapsed"`
	Rate      float64       `json:"rate"`
	ETA       time.Duration `json:"eta"`
}

// DeletionReport summarizes the flag-and-expunge phase. A non-nil CommitErr
// means flags were set but the expunge did not run to completion; flagged
// messages remain recoverable on the next run.
type DeletionReport struct {
	Successful int   `json:"successful"`
	Failed     int   `json:"failed"`
	CommitErr  error `json:"-"`
}

// RunSummary is the final outcome of one sweep run.
type RunSummary struct {
	Scan     *ScanResult     `json:"scan"`
	Deletion *DeletionReport `json:"deletion,omitempty"`
	DryRun   bool            `json:"dry_run"`
}
