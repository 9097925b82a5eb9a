package scraper

import "time"

// DefaultLookbackMonths is the trailing window applied when a request carries
// no explicit start date.
const DefaultLookbackMonths = 6

// Window is a pair of calendar dates, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// ResolveWindow fills in missing window bounds: a zero to-date becomes today,
// a zero from-date becomes to-date minus lookbackMonths. Times are truncated
// to calendar dates in UTC.
func ResolveWindow(from, to time.Time, lookbackMonths int) Window {
	if lookbackMonths <= 0 {
		lookbackMonths = DefaultLookbackMonths
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	to = truncateDay(to)
	if from.IsZero() {
		from = to.AddDate(0, -lookbackMonths, 0)
	}
	return Window{From: truncateDay(from), To: to}
}

// Days returns the integer day count spanned by the window. Upstream sources
// that paginate by record count use this as the row limit for daily data, so
// a single-day window yields 0.
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours() / 24)
}

// Valid reports whether the window bounds are ordered.
func (w Window) Valid() bool {
	return !w.From.After(w.To)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type DateRange struct {
	From time.Time
	To   time.Time
}

// SplitDateRange breaks [from, to] into consecutive chunks of at most
// chunkDays days, for backends that cap the span of a single request.
func SplitDateRange(from, to time.Time, chunkDays int) []DateRange {
	if from.After(to) || chunkDays <= 0 {
		return nil
	}

	var chunks []DateRange
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, chunkDays) {
		end := cur.AddDate(0, 0, chunkDays-1)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, DateRange{From: cur, To: end})
	}
	return chunks
}
