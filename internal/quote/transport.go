package quote

import (
	"time"

	"marketdata/internal/apperror"
	"marketdata/internal/job"
)

type GetQuotesRequest struct {
	Source    Source
	Symbols   []string
	StartDate time.Time
	EndDate   time.Time
	Format    string // "json" or "csv"
}

func (r GetQuotesRequest) Validate() *apperror.AppError {
	if r.Source == "" {
		return apperror.New(apperror.BadRequest, "source is required")
	}
	for _, s := range r.Symbols {
		if s == "" {
			return apperror.New(apperror.BadRequest, "symbols must be non-empty strings")
		}
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return apperror.New(apperror.BadRequest, "endDate must be after startDate")
	}
	if r.Format != "" && r.Format != "json" && r.Format != "csv" {
		return apperror.New(apperror.BadRequest, "format must be json or csv")
	}
	return nil
}

// SymbolStatus reports the fetch outcome for one requested symbol.
type SymbolStatus struct {
	Symbol string `json:"symbol"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type GetQuotesResponse struct {
	Quotes []Quote  `json:"quotes"`
	Job    *job.Job `json:"job,omitempty"`
}

// FetchHistoryResponse is the synchronous acquisition result: the assembled
// table plus the per-symbol report.
type FetchHistoryResponse struct {
	Rows    []Quote        `json:"rows"`
	Symbols []SymbolStatus `json:"symbols"`
}
