package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketdata/internal/apperror"
	"marketdata/internal/job"
	"marketdata/internal/scraper"
)

type Service struct {
	quoteRepo      Repository
	jobRepo        job.Repository
	registry       *scraper.Registry
	lookbackMonths int
	notify         func() // optional: wake worker pool
}

func NewService(quoteRepo Repository, jobRepo job.Repository, registry *scraper.Registry, opts ...Option) *Service {
	s := &Service{
		quoteRepo:      quoteRepo,
		jobRepo:        jobRepo,
		registry:       registry,
		lookbackMonths: scraper.DefaultLookbackMonths,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Service)

// WithLookbackMonths overrides the trailing window applied when a request
// carries no explicit start date.
func WithLookbackMonths(n int) Option {
	return func(s *Service) { s.lookbackMonths = n }
}

// SetNotify sets a callback invoked when a new pending job is created.
func (s *Service) SetNotify(fn func()) { s.notify = fn }

func (s *Service) ListSources() []string {
	return s.registry.Sources()
}

// FetchHistory performs one synchronous acquisition: it fetches every symbol
// for the resolved window and assembles the result table. Per-symbol backends
// are called once per symbol in input order; bulk backends get the whole list
// in one call. The returned report states, per symbol, rows or reason.
func (s *Service) FetchHistory(ctx context.Context, source Source, symbols []string, from, to time.Time) (History, Report, error) {
	window := scraper.ResolveWindow(from, to, s.lookbackMonths)
	if !window.Valid() {
		return History{}, Report{}, fmt.Errorf("invalid date window: %s after %s",
			window.From.Format(time.DateOnly), window.To.Format(time.DateOnly))
	}
	if len(symbols) == 0 {
		return History{}, Report{}, nil
	}

	sc, err := s.registry.Get(string(source))
	if err != nil {
		return History{}, Report{}, err
	}

	var report Report

	if bulk, ok := sc.(scraper.BulkScraper); ok {
		batch, err := bulk.ScrapeBulk(ctx, symbols, window.From, window.To)
		if err != nil {
			return History{}, Report{}, fmt.Errorf("bulk fetch: %w", err)
		}
		bySymbol := make(map[string][]scraper.Quote, len(symbols))
		for _, q := range batch {
			bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
		}
		for _, symbol := range symbols {
			report.Results = append(report.Results, SymbolResult{
				Symbol: symbol,
				Quotes: bySymbol[symbol],
			})
		}
	} else {
		for _, symbol := range symbols {
			rows, err := sc.Scrape(ctx, symbol, window.From, window.To)
			report.Results = append(report.Results, SymbolResult{
				Symbol: symbol,
				Quotes: rows,
				Err:    err,
			})
		}
	}

	return BuildHistory(report), report, nil
}

// GetQuotes serves stored rows for the requested symbols and queues a fetch
// job for symbols whose stored coverage of the window is poor. Scraping
// happens asynchronously in the worker pool; callers poll the returned job.
func (s *Service) GetQuotes(ctx context.Context, req GetQuotesRequest) (*GetQuotesResponse, error) {
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}

	window := scraper.ResolveWindow(req.StartDate, req.EndDate, s.lookbackMonths)
	if !window.Valid() {
		return nil, fmt.Errorf("invalid date window")
	}

	if _, err := s.registry.Get(string(req.Source)); err != nil {
		return nil, err
	}

	if len(req.Symbols) == 0 {
		return &GetQuotesResponse{Quotes: []Quote{}}, nil
	}

	// Coverage check per symbol: weekdays are a rough upper bound on the
	// trading days the window can contain.
	totalDays := countWeekdays(window.From, window.To)
	var stale []string
	for _, symbol := range req.Symbols {
		existing, err := s.quoteRepo.ExistingDates(ctx, req.Source, symbol, window.From, window.To)
		if err != nil {
			return nil, fmt.Errorf("check existing dates: %w", err)
		}
		coverage := float64(len(existing)) / float64(max(totalDays, 1))
		if coverage <= 0.8 || len(existing) == 0 {
			stale = append(stale, symbol)
		}
	}

	var j *job.Job
	if len(stale) > 0 {
		dateFormat := time.DateOnly
		active, findErr := s.jobRepo.FindActive(ctx, string(req.Source), job.SymbolsKey(stale),
			window.From.Format(dateFormat), window.To.Format(dateFormat))
		if findErr != nil {
			return nil, fmt.Errorf("find active job: %w", findErr)
		}

		if active != nil {
			j = active
		} else {
			j = &job.Job{
				Source:    string(req.Source),
				Symbols:   stale,
				StartDate: window.From,
				EndDate:   window.To,
				Status:    job.StatusPending,
			}
			if createErr := s.jobRepo.Create(ctx, j); createErr != nil {
				return nil, fmt.Errorf("create job: %w", createErr)
			}
			if s.notify != nil {
				s.notify()
			}
		}
	}

	// Assemble stored rows with the same ordering contract as a live fetch:
	// each symbol's batch is prepended ahead of the accumulated rows.
	var quotes []Quote
	for _, symbol := range req.Symbols {
		rows, err := s.quoteRepo.ListQuotes(ctx, req.Source, symbol, window.From, window.To)
		if err != nil {
			return nil, fmt.Errorf("list quotes: %w", err)
		}
		quotes = append(rows, quotes...)
	}
	if quotes == nil {
		quotes = []Quote{}
	}

	return &GetQuotesResponse{Quotes: quotes, Job: j}, nil
}

// FetchQuotes performs one synchronous acquisition and persists the result.
// Unlike GetQuotes it always goes upstream, and the response carries the
// per-symbol outcome so callers see exactly which symbols failed and why.
func (s *Service) FetchQuotes(ctx context.Context, req GetQuotesRequest) (*FetchHistoryResponse, error) {
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}

	history, report, err := s.FetchHistory(ctx, req.Source, req.Symbols, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if report.AllFailed() {
		return nil, apperror.New(apperror.Upstream, report.Err().Error())
	}

	rows := make([]Quote, 0, len(history.Rows))
	for _, q := range history.Rows {
		rows = append(rows, Quote{
			Source: req.Source,
			Symbol: q.Symbol,
			Date:   q.Date,
			Open:   q.Open,
			High:   q.High,
			Low:    q.Low,
			Close:  q.Close,
			Volume: q.Volume,
		})
	}

	if _, err := s.quoteRepo.SaveQuotes(ctx, rows); err != nil {
		return nil, fmt.Errorf("save quotes: %w", err)
	}

	return &FetchHistoryResponse{
		Rows:    rows,
		Symbols: StatusReport(report),
	}, nil
}

// Process implements job.Processor. Called by the worker pool with a claimed
// (running) job. It fetches the job's symbols, saves the assembled rows, and
// marks the job completed or failed. Partial failures complete the job with
// the per-symbol error text recorded.
func (s *Service) Process(ctx context.Context, j *job.Job) error {
	history, report, err := s.FetchHistory(ctx, Source(j.Source), j.Symbols, j.StartDate, j.EndDate)
	if err != nil {
		return s.failJob(ctx, j, err)
	}

	if report.AllFailed() {
		return s.failJob(ctx, j, report.Err())
	}

	rows := make([]Quote, 0, len(history.Rows))
	for _, q := range history.Rows {
		rows = append(rows, Quote{
			Source: Source(j.Source),
			Symbol: q.Symbol,
			Date:   q.Date,
			Open:   q.Open,
			High:   q.High,
			Low:    q.Low,
			Close:  q.Close,
			Volume: q.Volume,
		})
	}

	n, err := s.quoteRepo.SaveQuotes(ctx, rows)
	if err != nil {
		return s.failJob(ctx, j, fmt.Errorf("save quotes: %w", err))
	}

	slog.Info("saved quotes", "source", j.Source, "symbols", j.Symbols, "new", n, "total_fetched", len(rows))

	j.Status = job.StatusCompleted
	j.RecordsCount = n
	if repErr := report.Err(); repErr != nil {
		// Completed for the symbols that succeeded; the rest are on record.
		j.Error = repErr.Error()
	}
	_ = s.jobRepo.Update(ctx, j)
	return nil
}

func (s *Service) failJob(ctx context.Context, j *job.Job, err error) error {
	j.Status = job.StatusFailed
	j.Error = err.Error()
	_ = s.jobRepo.Update(ctx, j)
	return err
}

// StatusReport converts a report into its transport shape.
func StatusReport(report Report) []SymbolStatus {
	statuses := make([]SymbolStatus, 0, len(report.Results))
	for _, res := range report.Results {
		st := SymbolStatus{Symbol: res.Symbol, OK: res.Err == nil}
		if res.Err != nil {
			st.Error = res.Err.Error()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func countWeekdays(from, to time.Time) int {
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}
