// Package rate fetches Argentine peso/dollar exchange-rate series. The
// upstream answers one unparameterized GET per rate category with the
// category's complete history; only the sell price survives ingestion.
package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://api.argentinadatos.com"
	servicePath    = "v1/cotizaciones/dolares"
	dateFormat     = "2006-01-02"
)

type Service struct {
	repo    Repository
	client  *http.Client
	baseURL string
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		client:  http.DefaultClient,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Service)

func WithClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = u }
}

// dolarRecord is one upstream row. Compra is decoded for shape validation
// but dropped at mapping; only fecha and venta reach the domain.
type dolarRecord struct {
	Casa   string  `json:"casa"`
	Compra float64 `json:"compra"`
	Venta  float64 `json:"venta"`
	Fecha  string  `json:"fecha"`
}

// GetRates returns the full date-indexed sell-price table for one rate
// category. It refreshes from upstream first; if the upstream is down, the
// stored table is served as-is.
func (s *Service) GetRates(ctx context.Context, category string) (map[time.Time]float64, error) {
	if category == "" {
		return nil, fmt.Errorf("rate category cannot be empty")
	}

	if err := s.refresh(ctx, category); err != nil {
		slog.Error("failed to refresh exchange rates", "category", category, "error", err)
		// Serve whatever the repository has.
	}

	rates, err := s.repo.ListRates(ctx, category, time.Time{}, farFuture())
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}

	table := make(map[time.Time]float64, len(rates))
	for _, r := range rates {
		table[r.Date] = r.Sell
	}
	return table, nil
}

// ListRates returns the stored rows for one category, ascending by date,
// refreshing from upstream first. Both window bounds are optional.
func (s *Service) ListRates(ctx context.Context, category string, from, to time.Time) ([]Rate, error) {
	if category == "" {
		return nil, fmt.Errorf("rate category cannot be empty")
	}

	if err := s.refresh(ctx, category); err != nil {
		slog.Error("failed to refresh exchange rates", "category", category, "error", err)
	}

	if to.IsZero() {
		to = farFuture()
	}
	return s.repo.ListRates(ctx, category, from, to)
}

// refresh fetches the category's complete history and stores rows for dates
// not yet present.
func (s *Service) refresh(ctx context.Context, category string) error {
	fetched, err := s.fetch(ctx, category)
	if err != nil {
		return err
	}

	existing, err := s.repo.ExistingDates(ctx, category, time.Time{}, farFuture())
	if err != nil {
		return fmt.Errorf("check existing rate dates: %w", err)
	}

	rates := make([]Rate, 0, len(fetched))
	for _, r := range fetched {
		if existing[r.Date] {
			continue
		}
		rates = append(rates, r)
	}
	if len(rates) == 0 {
		return nil
	}

	n, err := s.repo.SaveRates(ctx, rates)
	if err != nil {
		return fmt.Errorf("save rates: %w", err)
	}
	slog.Info("saved exchange rates", "category", category, "new", n)
	return nil
}

// fetch issues the single unparameterized GET for one category and maps the
// response to domain rows, keeping only date and sell price.
func (s *Service) fetch(ctx context.Context, category string) ([]Rate, error) {
	reqURL := fmt.Sprintf("%s/%s/%s", s.baseURL, servicePath, url.PathEscape(category))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned HTTP %d for %s", res.StatusCode, category)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var records []dolarRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("parse rate response: %w", err)
	}

	rates := make([]Rate, 0, len(records))
	for _, rec := range records {
		d, err := time.Parse(dateFormat, rec.Fecha)
		if err != nil {
			return nil, fmt.Errorf("parse rate date %q: %w", rec.Fecha, err)
		}
		rates = append(rates, Rate{
			Category: category,
			Date:     d,
			Sell:     rec.Venta,
		})
	}

	slog.Info("retrieved exchange rate data", "category", category, "count", len(rates))
	return rates, nil
}

// farFuture is the open upper bound used when a query has no end date.
func farFuture() time.Time {
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}
