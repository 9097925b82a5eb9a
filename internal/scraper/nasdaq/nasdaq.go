// Package nasdaq implements a scraper for the Nasdaq historical quote API.
// The endpoint returns prices as display strings ("$1,234.56") which are
// stripped and coerced before leaving this package.
package nasdaq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketdata/internal/scraper"
)

const (
	defaultBaseURL   = "https://api.nasdaq.com/api/quote"
	historicalPath   = "historical"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	dateFormat       = "2006-01-02"
	rowDateFormat    = "01/02/2006"
)

type Scraper struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    http.DefaultClient,
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Scraper)

func WithClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = u }
}

// WithUserAgent sets the client-identity header sent upstream. The endpoint
// rejects requests without a browser-looking User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

func (s *Scraper) Source() string { return "nasdaq" }

// tradesResponse is the subset of the Nasdaq response we descend into:
// data.tradesTable.rows. All numeric fields arrive as display strings.
type tradesResponse struct {
	Data struct {
		TradesTable struct {
			Rows []tradeRow `json:"rows"`
		} `json:"tradesTable"`
	} `json:"data"`
	Status struct {
		RCode int `json:"rCode"`
	} `json:"status"`
}

type tradeRow struct {
	Date   string `json:"date"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
}

// Scrape fetches daily OHLCV rows for one symbol. The row limit sent upstream
// is the day count of the requested window, an upper bound for daily data.
func (s *Scraper) Scrape(ctx context.Context, symbol string, from, to time.Time) ([]scraper.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty")
	}
	if from.IsZero() {
		return nil, fmt.Errorf("start date cannot be empty")
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.After(to) {
		return nil, fmt.Errorf("start date cannot be after end date")
	}

	window := scraper.Window{From: from, To: to}

	params := url.Values{}
	params.Set("fromdate", from.Format(dateFormat))
	params.Set("todate", to.Format(dateFormat))
	params.Set("assetclass", "stocks")
	params.Set("limit", strconv.Itoa(window.Days()))

	reqURL := fmt.Sprintf("%s/%s/%s?%s", s.baseURL, url.PathEscape(symbol), historicalPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nasdaq returned HTTP %d for %s", res.StatusCode, symbol)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var response tradesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse nasdaq response: %w", err)
	}

	rows := response.Data.TradesTable.Rows
	quotes := make([]scraper.Quote, 0, len(rows))
	for _, row := range rows {
		q, err := cleanRow(symbol, row)
		if err != nil {
			return nil, fmt.Errorf("nasdaq row for %s: %w", symbol, err)
		}
		quotes = append(quotes, q)
	}

	slog.Info("retrieved nasdaq data", "symbol", symbol,
		"from", from.Format(dateFormat), "to", to.Format(dateFormat),
		"count", len(quotes))

	return quotes, nil
}

// cleanRow coerces one display row into a Quote. Any field that fails to
// parse aborts the whole fetch; a half-cleaned table is worse than an error.
func cleanRow(symbol string, row tradeRow) (scraper.Quote, error) {
	var q scraper.Quote
	var err error

	q.Symbol = symbol

	if q.Date, err = parseRowDate(row.Date); err != nil {
		return q, err
	}
	if q.Open, err = ParsePrice(row.Open); err != nil {
		return q, fmt.Errorf("open: %w", err)
	}
	if q.High, err = ParsePrice(row.High); err != nil {
		return q, fmt.Errorf("high: %w", err)
	}
	if q.Low, err = ParsePrice(row.Low); err != nil {
		return q, fmt.Errorf("low: %w", err)
	}
	if q.Close, err = ParsePrice(row.Close); err != nil {
		return q, fmt.Errorf("close: %w", err)
	}
	if q.Volume, err = ParseVolume(row.Volume); err != nil {
		return q, fmt.Errorf("volume: %w", err)
	}

	return q, nil
}

// ParsePrice strips the currency marker and grouping separators from a price
// string like "$1,234.56" and coerces it to a decimal. Already-clean input
// passes through unchanged.
func ParsePrice(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s), "$", ""), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty price field")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, nil
}

// ParseVolume strips grouping separators from a volume string like "12,345"
// and coerces it to an integer. Volume carries no currency marker.
func ParseVolume(s string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" || cleaned == "N/A" {
		return 0, fmt.Errorf("empty volume field")
	}
	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse volume %q: %w", s, err)
	}
	return v, nil
}

// parseRowDate accepts the US-style dates the trades table uses, with an
// ISO fallback.
func parseRowDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(rowDateFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
