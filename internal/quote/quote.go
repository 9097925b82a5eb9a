package quote

import "time"

type Source string

const (
	SourceNasdaq Source = "nasdaq"
	SourceYahoo  Source = "yahoo"
)

// Quote is one persisted symbol/trading-day price row.
type Quote struct {
	ID        int64     `json:"id"`
	Source    Source    `json:"source"`
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	CreatedAt time.Time `json:"createdAt"`
}
