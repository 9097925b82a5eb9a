package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketdata/internal/quote"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

func writeCSV(w http.ResponseWriter, quotes []quote.Quote) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=quotes.csv")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintln(w, "Symbol,Date,Open,High,Low,Close,Volume,Source")
	for _, q := range quotes {
		_, _ = fmt.Fprintf(w, "%s,%s,%.6f,%.6f,%.6f,%.6f,%d,%s\n",
			q.Symbol,
			q.Date.Format(time.DateOnly),
			q.Open,
			q.High,
			q.Low,
			q.Close,
			q.Volume,
			q.Source,
		)
	}
}
