package server

import (
	"net/http"

	"marketdata/internal/job"
	"marketdata/internal/quote"
	"marketdata/internal/rate"
)

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(quoteSvc *quote.Service, rateSvc *rate.Service, jobSvc *job.Service) http.Handler {
	return newMux(quoteSvc, rateSvc, jobSvc)
}

func newMux(quoteSvc *quote.Service, rateSvc *rate.Service, jobSvc *job.Service) http.Handler {
	h := &handler{
		quoteSvc: quoteSvc,
		rateSvc:  rateSvc,
		jobSvc:   jobSvc,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/sources", h.listSources)
	mux.HandleFunc("GET /api/v1/quotes", h.getQuotes)
	mux.HandleFunc("GET /api/v1/quotes/fetch", h.fetchQuotes)
	mux.HandleFunc("GET /api/v1/dolar/{category}", h.getRates)
	mux.HandleFunc("GET /api/v1/jobs", h.listJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.getJob)

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
