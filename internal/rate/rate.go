package rate

import "time"

// Known rate categories of the upstream source. Categories are opaque
// strings; anything the upstream answers for is accepted.
const (
	CategoryOficial   = "oficial"
	CategoryBlue      = "blue"
	CategoryBolsa     = "bolsa"
	CategoryCCL       = "contadoconliqui"
	CategoryCripto    = "cripto"
	CategoryMayorista = "mayorista"
	CategorySolidario = "solidario"
	CategoryTurista   = "turista"
)

// Rate is one persisted exchange-rate row: the sell price of a rate category
// on a calendar date. The upstream buy price is discarded at ingestion.
type Rate struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	Sell      float64   `json:"sell"`
	CreatedAt time.Time `json:"createdAt"`
}
