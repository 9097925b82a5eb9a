package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Quote is one symbol/trading-day row as returned by a backend, already
// cleaned: currency markers and grouping separators stripped, fields coerced.
type Quote struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type Scraper interface {
	Source() string
	Scrape(ctx context.Context, symbol string, from, to time.Time) ([]Quote, error)
}

// BulkScraper is implemented by backends whose upstream accepts all symbols
// in one multiplexed request instead of one call per symbol.
type BulkScraper interface {
	ScrapeBulk(ctx context.Context, symbols []string, from, to time.Time) ([]Quote, error)
}

type Registry struct {
	mu       sync.RWMutex
	scrapers map[string]Scraper
}

func NewRegistry() *Registry {
	return &Registry{
		scrapers: make(map[string]Scraper),
	}
}

func (r *Registry) Register(s Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[s.Source()] = s
}

func (r *Registry) Get(source string) (Scraper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scrapers[source]
	if !ok {
		return nil, fmt.Errorf("scraper not found for source: %s", source)
	}
	return s, nil
}

func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sources := make([]string, 0, len(r.scrapers))
	for src := range r.scrapers {
		sources = append(sources, src)
	}
	return sources
}
