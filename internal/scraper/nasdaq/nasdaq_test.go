package nasdaq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func tradesBody(rows ...tradeRow) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"tradesTable": map[string]any{
				"rows": rows,
			},
		},
	}
}

func TestScrape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AAPL/historical" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("assetclass") != "stocks" {
			t.Errorf("expected assetclass=stocks, got %s", q.Get("assetclass"))
		}
		if q.Get("fromdate") != "2024-01-01" || q.Get("todate") != "2024-01-31" {
			t.Errorf("unexpected window: %s .. %s", q.Get("fromdate"), q.Get("todate"))
		}
		if r.Header.Get("User-Agent") != "test-agent/1.0" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}

		_ = json.NewEncoder(w).Encode(tradesBody(
			tradeRow{Date: "01/03/2024", Close: "$185.64", Volume: "58,414,460", Open: "$184.22", High: "$185.88", Low: "$183.43"},
			tradeRow{Date: "01/02/2024", Close: "$185.14", Volume: "82,488,700", Open: "$187.15", High: "$188.44", Low: "$183.89"},
		))
	}))
	defer ts.Close()

	s := New(
		WithClient(ts.Client()),
		WithBaseURL(ts.URL),
		WithUserAgent("test-agent/1.0"),
	)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	quotes, err := s.Scrape(context.Background(), "AAPL", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Close != 185.64 {
		t.Errorf("expected close 185.64, got %f", quotes[0].Close)
	}
	if quotes[0].Volume != 58414460 {
		t.Errorf("expected volume 58414460, got %d", quotes[0].Volume)
	}
	if quotes[0].Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", quotes[0].Symbol)
	}
	want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	if !quotes[0].Date.Equal(want) {
		t.Errorf("expected date %v, got %v", want, quotes[0].Date)
	}
}

func TestScrape_LimitIsWindowDayCount(t *testing.T) {
	var gotLimit string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode(tradesBody())
	}))
	defer ts.Close()

	s := New(WithClient(ts.Client()), WithBaseURL(ts.URL))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		to   time.Time
		want string
	}{
		{"31 day window", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), "30"},
		{"same day window", from, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Scrape(context.Background(), "AAPL", from, tt.to); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotLimit != tt.want {
				t.Errorf("limit = %s, want %s", gotLimit, tt.want)
			}
		})
	}
}

func TestScrape_DirtyFieldAbortsFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tradesBody(
			tradeRow{Date: "01/02/2024", Close: "$185.14", Volume: "82,488,700", Open: "$187.15", High: "$188.44", Low: "$183.89"},
			tradeRow{Date: "01/03/2024", Close: "not-a-price", Volume: "1", Open: "$1", High: "$1", Low: "$1"},
		))
	}))
	defer ts.Close()

	s := New(WithClient(ts.Client()), WithBaseURL(ts.URL))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	if _, err := s.Scrape(context.Background(), "AAPL", from, to); err == nil {
		t.Fatal("expected error for unparsable close field")
	}
}

func TestScrape_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	s := New(WithClient(ts.Client()), WithBaseURL(ts.URL))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	_, err := s.Scrape(context.Background(), "AAPL", from, to)
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

func TestScrape_EmptySymbol(t *testing.T) {
	s := New()
	if _, err := s.Scrape(context.Background(), "", time.Now(), time.Now()); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestScrape_InvertedWindow(t *testing.T) {
	s := New()
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.Scrape(context.Background(), "AAPL", from, to); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"$1,234.56", 1234.56, false},
		{"$185.64", 185.64, false},
		{"1234.56", 1234.56, false}, // already clean
		{"$0.09", 0.09, false},
		{" $12.00 ", 12, false},
		{"", 0, true},
		{"N/A", 0, true},
		{"$1,2x4.56", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePrice(%q): expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePrice(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12,345", 12345, false},
		{"58,414,460", 58414460, false},
		{"900", 900, false},
		{"", 0, true},
		{"N/A", 0, true},
		{"12.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVolume(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVolume(%q): expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVolume(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseVolume(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
