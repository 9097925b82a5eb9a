// Package yahoo implements a scraper for Yahoo Finance historical price data.
// It uses the v8 chart API with cookie + crumb authentication and can serve a
// whole symbol list in one multiplexed call, which makes it the bulk backend.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marketdata/internal/scraper"
)

const (
	defaultChartEndpoint = "https://query2.finance.yahoo.com/v8/finance/chart"
	defaultCookieURL     = "https://fc.yahoo.com"
	defaultCrumbURL      = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	dateFormat           = "2006-01-02"
	chunkDays            = 1250
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Scraper fetches historical OHLCV data from Yahoo Finance.
type Scraper struct {
	workers       int
	client        *http.Client
	chartEndpoint string
	cookieURL     string
	crumbURL      string
	userAgent     string

	mu    sync.Mutex
	crumb string
}

// New creates a Scraper with the given options applied.
func New(opts ...Option) *Scraper {
	jar, _ := cookiejar.New(nil)
	s := &Scraper{
		workers:       5,
		client:        &http.Client{Jar: jar},
		chartEndpoint: defaultChartEndpoint,
		cookieURL:     defaultCookieURL,
		crumbURL:      defaultCrumbURL,
		userAgent:     defaultUserAgent,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithWorkers sets the worker concurrency for parallel symbol/chunk fetching.
func WithWorkers(n int) Option {
	return func(s *Scraper) { s.workers = n }
}

// WithClient sets the HTTP client. The client should have a cookie jar.
func WithClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithChartEndpoint overrides the default chart API endpoint.
func WithChartEndpoint(ep string) Option {
	return func(s *Scraper) { s.chartEndpoint = ep }
}

// WithCookieURL overrides the URL used to obtain the session cookie.
func WithCookieURL(u string) Option {
	return func(s *Scraper) { s.cookieURL = u }
}

// WithCrumbURL overrides the URL used to obtain the crumb token.
func WithCrumbURL(u string) Option {
	return func(s *Scraper) { s.crumbURL = u }
}

// WithUserAgent sets the client-identity header sent upstream.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// Source returns the scraper identifier.
func (s *Scraper) Source() string { return "yahoo" }

// chartResponse represents the Yahoo Finance v8 chart API response.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Scrape fetches daily OHLCV rows for a single symbol and date range.
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

	// Ensure we have a valid crumb before starting parallel fetches.
	if err := s.ensureCrumb(ctx); err != nil {
		return nil, fmt.Errorf("yahoo auth: %w", err)
	}

	chunks := scraper.SplitDateRange(from, to, chunkDays)

	results := make([][]scraper.Quote, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, c := range chunks {
		g.Go(func() error {
			quotes, err := s.fetchChart(ctx, symbol, c.From, c.To)
			if err != nil {
				slog.Error("error retrieving yahoo data", "symbol", symbol,
					"startDate", c.From.Format(dateFormat), "endDate", c.To.Format(dateFormat), "error", err)
				return nil
			}
			results[i] = quotes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []scraper.Quote
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// ScrapeBulk fetches all symbols in one multiplexed call: the upstream is
// queried per symbol under the hood, but callers hand over the whole list and
// get one combined batch back, ordered by the input symbol order. Symbols
// that fail are logged and skipped.
func (s *Scraper) ScrapeBulk(ctx context.Context, symbols []string, from, to time.Time) ([]scraper.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, -scraper.DefaultLookbackMonths, 0)
	}
	if from.After(to) {
		return nil, fmt.Errorf("start date cannot be after end date")
	}

	if err := s.ensureCrumb(ctx); err != nil {
		return nil, fmt.Errorf("yahoo auth: %w", err)
	}

	results := make([][]scraper.Quote, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, symbol := range symbols {
		g.Go(func() error {
			quotes, err := s.fetchChart(ctx, symbol, from, to)
			if err != nil {
				slog.Error("error retrieving yahoo data", "symbol", symbol, "error", err)
				return nil
			}
			results[i] = quotes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []scraper.Quote
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// ensureCrumb fetches a session cookie and crumb token if not already cached.
func (s *Scraper) ensureCrumb(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb != "" {
		return nil
	}

	// Step 1: GET the cookie host to obtain a session cookie.
	cookieReq, err := http.NewRequestWithContext(ctx, "GET", s.cookieURL, nil)
	if err != nil {
		return fmt.Errorf("build cookie request: %w", err)
	}
	cookieReq.Header.Set("User-Agent", s.userAgent)

	cookieRes, err := s.client.Do(cookieReq) //nolint:gosec // URL from internal config
	if err != nil {
		return fmt.Errorf("fetch cookie: %w", err)
	}
	_ = cookieRes.Body.Close()

	// Step 2: GET crumb endpoint (cookie is sent automatically via jar).
	crumbReq, err := http.NewRequestWithContext(ctx, "GET", s.crumbURL, nil)
	if err != nil {
		return fmt.Errorf("build crumb request: %w", err)
	}
	crumbReq.Header.Set("User-Agent", s.userAgent)

	crumbRes, err := s.client.Do(crumbReq) //nolint:gosec // URL from internal config
	if err != nil {
		return fmt.Errorf("fetch crumb: %w", err)
	}
	defer func() { _ = crumbRes.Body.Close() }()

	if crumbRes.StatusCode != http.StatusOK {
		return fmt.Errorf("crumb endpoint returned HTTP %d", crumbRes.StatusCode)
	}

	body, err := io.ReadAll(crumbRes.Body)
	if err != nil {
		return fmt.Errorf("read crumb: %w", err)
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return fmt.Errorf("empty crumb received")
	}

	s.crumb = crumb
	slog.Info("yahoo: obtained crumb", "crumb_len", len(crumb))
	return nil
}

// fetchChart fetches chart data for a single symbol and date range.
func (s *Scraper) fetchChart(ctx context.Context, symbol string, from, to time.Time) ([]scraper.Quote, error) {
	s.mu.Lock()
	crumb := s.crumb
	s.mu.Unlock()

	reqURL := fmt.Sprintf("%s/%s?period1=%s&period2=%s&interval=1d&events=div%%2Csplits&crumb=%s",
		s.chartEndpoint,
		symbol,
		strconv.FormatInt(from.Unix(), 10),
		strconv.FormatInt(to.Unix(), 10),
		crumb,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	res, err := s.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		// Invalidate crumb on auth errors so the next call retries auth.
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			s.mu.Lock()
			s.crumb = ""
			s.mu.Unlock()
		}
		return nil, fmt.Errorf("yahoo returned HTTP %d for %s", res.StatusCode, symbol)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse yahoo response: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	bars := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	quotes := make([]scraper.Quote, 0, n)
	for i := range n {
		closeVal, ok := barValue(bars.Close, i)
		if !ok {
			// Null close means no trade data for the day; skip the bar.
			continue
		}
		openVal, _ := barValue(bars.Open, i)
		highVal, _ := barValue(bars.High, i)
		lowVal, _ := barValue(bars.Low, i)
		volVal, _ := barValue(bars.Volume, i)

		date := time.Unix(result.Timestamp[i], 0).UTC().Truncate(24 * time.Hour)
		quotes = append(quotes, scraper.Quote{
			Symbol: symbol,
			Date:   date,
			Open:   openVal,
			High:   highVal,
			Low:    lowVal,
			Close:  closeVal,
			Volume: int64(volVal),
		})
	}

	slog.Info("retrieved yahoo data", "symbol", symbol,
		"from", from.Format(dateFormat), "to", to.Format(dateFormat),
		"count", len(quotes))

	return quotes, nil
}

// barValue reads index i of a chart indicator array, tolerating short arrays
// and the nulls Yahoo uses for missing data points.
func barValue(vals []any, i int) (float64, bool) {
	if i >= len(vals) {
		return 0, false
	}
	switch v := vals[i].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
