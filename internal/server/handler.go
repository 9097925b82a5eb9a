package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketdata/internal/apperror"
	"marketdata/internal/job"
	"marketdata/internal/quote"
	"marketdata/internal/rate"
)

const dateFormat = "2006-01-02"

type handler struct {
	quoteSvc *quote.Service
	rateSvc  *rate.Service
	jobSvc   *job.Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listSources(w http.ResponseWriter, _ *http.Request) {
	sources := h.quoteSvc.ListSources()
	writeJSON(w, http.StatusOK, sources)
}

// parseQuotesRequest extracts and validates the shared query parameters of
// the quote endpoints. On failure it writes the error response and returns
// ok=false.
func (h *handler) parseQuotesRequest(w http.ResponseWriter, r *http.Request) (quote.GetQuotesRequest, bool) {
	var req quote.GetQuotesRequest

	req.Source = quote.Source(r.URL.Query().Get("source"))
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source query parameter is required")
		return req, false
	}

	symbolsParam := r.URL.Query().Get("symbols")
	if symbolsParam == "" {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return req, false
	}
	for _, s := range strings.Split(symbolsParam, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			req.Symbols = append(req.Symbols, s)
		}
	}

	var err error
	if v := r.URL.Query().Get("startDate"); v != "" {
		req.StartDate, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate format, expected YYYY-MM-DD")
			return req, false
		}
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		req.EndDate, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate format, expected YYYY-MM-DD")
			return req, false
		}
	}

	req.Format = r.URL.Query().Get("format")

	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return req, false
	}

	return req, true
}

func (h *handler) getQuotes(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseQuotesRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.quoteSvc.GetQuotes(r.Context(), req)
	if err != nil {
		if ae, ok := err.(*apperror.AppError); ok {
			writeError(w, ae.HTTPStatus(), ae.Message())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Format == "csv" {
		writeCSV(w, resp.Quotes)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) fetchQuotes(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseQuotesRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.quoteSvc.FetchQuotes(r.Context(), req)
	if err != nil {
		if ae, ok := err.(*apperror.AppError); ok {
			writeError(w, ae.HTTPStatus(), ae.Message())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Format == "csv" {
		writeCSV(w, resp.Rows)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getRates(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(r.PathValue("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	rates, err := h.rateSvc.ListRates(r.Context(), category, time.Time{}, time.Time{})
	if err != nil {
		if ae, ok := err.(*apperror.AppError); ok {
			writeError(w, ae.HTTPStatus(), ae.Message())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rates)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	req := job.GetJobRequest{ID: id}
	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	j, err := h.jobSvc.Get(r.Context(), req)
	if err != nil {
		if ae, ok := err.(*apperror.AppError); ok {
			writeError(w, ae.HTTPStatus(), ae.Message())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	req := job.ListJobsRequest{
		Source: r.URL.Query().Get("source"),
		Symbol: strings.ToUpper(r.URL.Query().Get("symbol")),
	}

	jobs, err := h.jobSvc.List(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}
