package job

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one queued acquisition request: a source, the symbol list of the
// request, and the date window to fetch. A partially failed fetch completes
// with the per-symbol error text stored in Error.
type Job struct {
	ID           int64     `json:"id"`
	Source       string    `json:"source"`
	Symbols      []string  `json:"symbols"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	RecordsCount int64     `json:"recordsCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SymbolsKey flattens a symbol list into the canonical comma-joined form used
// for storage and job deduplication. Order is preserved; symbols are opaque
// strings that never contain commas upstream.
func SymbolsKey(symbols []string) string {
	return strings.Join(symbols, ",")
}

// SplitSymbolsKey is the inverse of SymbolsKey.
func SplitSymbolsKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, ",")
}
