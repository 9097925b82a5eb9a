package rate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockRepo struct {
	rates []Rate
}

func (m *mockRepo) SaveRates(_ context.Context, rates []Rate) (int64, error) {
	m.rates = append(m.rates, rates...)
	return int64(len(rates)), nil
}

func (m *mockRepo) ListRates(_ context.Context, category string, from, to time.Time) ([]Rate, error) {
	var out []Rate
	for _, r := range m.rates {
		if r.Category != category {
			continue
		}
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepo) ExistingDates(_ context.Context, category string, _, _ time.Time) (map[time.Time]bool, error) {
	dates := make(map[time.Time]bool)
	for _, r := range m.rates {
		if r.Category == category {
			dates[r.Date] = true
		}
	}
	return dates, nil
}

const dolarBody = `[
	{"casa":"oficial","compra":1010.5,"venta":1050.5,"fecha":"2024-01-02"},
	{"casa":"oficial","compra":1015.0,"venta":1055.0,"fecha":"2024-01-03"}
]`

func TestGetRates_KeepsOnlySellPrice(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cotizaciones/dolares/oficial" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(dolarBody))
	}))
	defer ts.Close()

	repo := &mockRepo{}
	svc := NewService(repo, WithClient(ts.Client()), WithBaseURL(ts.URL))

	table, err := svc.GetRates(context.Background(), "oficial")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(table) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(table))
	}
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if table[d] != 1050.5 {
		t.Errorf("expected sell 1050.5 on %s, got %f", d.Format("2006-01-02"), table[d])
	}
	// compra must not leak into the stored rows
	for _, r := range repo.rates {
		if r.Sell == 1010.5 || r.Sell == 1015.0 {
			t.Errorf("buy price stored as sell: %+v", r)
		}
	}
}

func TestGetRates_RefreshIsIncremental(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(dolarBody))
	}))
	defer ts.Close()

	repo := &mockRepo{}
	svc := NewService(repo, WithClient(ts.Client()), WithBaseURL(ts.URL))

	if _, err := svc.GetRates(context.Background(), "oficial"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetRates(context.Background(), "oficial"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls)
	}
	// Second refresh found every date already stored.
	if len(repo.rates) != 2 {
		t.Errorf("expected 2 stored rates after two refreshes, got %d", len(repo.rates))
	}
}

func TestGetRates_UpstreamDownServesStored(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	repo := &mockRepo{rates: []Rate{
		{Category: "blue", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Sell: 1210},
	}}
	svc := NewService(repo, WithClient(ts.Client()), WithBaseURL(ts.URL))

	table, err := svc.GetRates(context.Background(), "blue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("expected stored table to be served, got %d rows", len(table))
	}
}

func TestGetRates_EmptyCategory(t *testing.T) {
	svc := NewService(&mockRepo{})
	if _, err := svc.GetRates(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty category")
	}
}

func TestGetRates_MalformedDate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"casa":"oficial","compra":1,"venta":2,"fecha":"02/01/2024"}]`))
	}))
	defer ts.Close()

	repo := &mockRepo{}
	svc := NewService(repo, WithClient(ts.Client()), WithBaseURL(ts.URL))

	// The fetch fails, nothing is stored, and the empty stored table is served.
	table, err := svc.GetRates(context.Background(), "oficial")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("expected empty table, got %d rows", len(table))
	}
	if len(repo.rates) != 0 {
		t.Errorf("malformed rows must not be stored, got %d", len(repo.rates))
	}
}
