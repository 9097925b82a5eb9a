package quote

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"marketdata/internal/scraper"
)

func row(symbol string, day int) scraper.Quote {
	return scraper.Quote{
		Symbol: symbol,
		Date:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Open:   1, High: 2, Low: 0.5, Close: 1.5, Volume: 100,
	}
}

func TestBuildHistory_PrependOrdering(t *testing.T) {
	// Input order A, B: B's batch ends up first, each batch contiguous and
	// in upstream order.
	report := Report{Results: []SymbolResult{
		{Symbol: "A", Quotes: []scraper.Quote{row("A", 1), row("A", 2)}},
		{Symbol: "B", Quotes: []scraper.Quote{row("B", 1), row("B", 2)}},
	}}

	got := BuildHistory(report)
	want := []scraper.Quote{row("B", 1), row("B", 2), row("A", 1), row("A", 2)}

	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("row order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildHistory_FailedSymbolOmitted(t *testing.T) {
	report := Report{Results: []SymbolResult{
		{Symbol: "A", Err: errors.New("upstream returned HTTP 404")},
		{Symbol: "B", Quotes: []scraper.Quote{row("B", 1)}},
	}}

	got := BuildHistory(report)
	want := []scraper.Quote{row("B", 1)}

	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildHistory_Empty(t *testing.T) {
	got := BuildHistory(Report{})
	if len(got.Rows) != 0 {
		t.Errorf("expected empty table, got %d rows", len(got.Rows))
	}
}

func TestReportErr_AggregatesFailures(t *testing.T) {
	report := Report{Results: []SymbolResult{
		{Symbol: "A", Err: errors.New("HTTP 404")},
		{Symbol: "B", Quotes: []scraper.Quote{row("B", 1)}},
		{Symbol: "C", Err: errors.New("HTTP 500")},
	}}

	err := report.Err()
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	for _, want := range []string{"A:", "C:"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("aggregated error missing %q: %s", want, err.Error())
		}
	}
	if strings.Contains(err.Error(), "B:") {
		t.Errorf("successful symbol leaked into error: %s", err.Error())
	}

	if got := len(report.Failed()); got != 2 {
		t.Errorf("Failed() = %d results, want 2", got)
	}
}

func TestReportErr_NilWhenAllSucceed(t *testing.T) {
	report := Report{Results: []SymbolResult{
		{Symbol: "A", Quotes: []scraper.Quote{row("A", 1)}},
	}}
	if err := report.Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if report.AllFailed() {
		t.Error("AllFailed should be false with a successful result")
	}
}

func TestReportAllFailed(t *testing.T) {
	report := Report{Results: []SymbolResult{
		{Symbol: "A", Err: errors.New("boom")},
		{Symbol: "B", Err: errors.New("boom")},
	}}
	if !report.AllFailed() {
		t.Error("expected AllFailed to be true")
	}
	if (Report{}).AllFailed() {
		t.Error("empty report should not count as all-failed")
	}
}

func TestHistorySymbols(t *testing.T) {
	h := History{Rows: []scraper.Quote{row("B", 1), row("B", 2), row("A", 1)}}
	want := []string{"B", "A"}
	if diff := cmp.Diff(want, h.Symbols()); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}
