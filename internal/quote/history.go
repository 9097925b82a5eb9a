package quote

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"marketdata/internal/scraper"
)

// SymbolResult is the outcome of fetching one symbol: either a batch of rows
// or the reason the symbol yielded nothing. A fetch never produces both.
type SymbolResult struct {
	Symbol string
	Quotes []scraper.Quote
	Err    error
}

// Report collects per-symbol outcomes for one acquisition request, in input
// symbol order. It makes partial failures explicit instead of silently
// dropping a symbol's contribution.
type Report struct {
	Results []SymbolResult
}

// Failed returns the results that carry an error.
func (r Report) Failed() []SymbolResult {
	var failed []SymbolResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err aggregates all per-symbol failures into one error, or nil when every
// symbol succeeded.
func (r Report) Err() error {
	var merr *multierror.Error
	for _, res := range r.Results {
		if res.Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", res.Symbol, res.Err))
		}
	}
	return merr.ErrorOrNil()
}

// AllFailed reports whether no symbol produced rows.
func (r Report) AllFailed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Err == nil {
			return false
		}
	}
	return true
}

// History is the assembled in-memory result table of one acquisition request.
type History struct {
	Rows []scraper.Quote
}

// BuildHistory concatenates the successful batches of a report by prepending
// each batch ahead of the previously accumulated rows: the final ordering is
// the reverse of the input symbol order, with each symbol's own rows kept
// contiguous and in upstream order.
func BuildHistory(report Report) History {
	var rows []scraper.Quote
	for _, res := range report.Results {
		if res.Err != nil {
			continue
		}
		rows = append(append([]scraper.Quote{}, res.Quotes...), rows...)
	}
	return History{Rows: rows}
}

// Symbols returns the distinct symbols present in the table, in row order.
func (h History) Symbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, row := range h.Rows {
		if !seen[row.Symbol] {
			seen[row.Symbol] = true
			symbols = append(symbols, row.Symbol)
		}
	}
	return symbols
}
