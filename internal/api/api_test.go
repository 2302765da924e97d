package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/types"
)

type stubProvider struct {
	positions []tracker.Position
	signals   []types.Signal
}

func (s *stubProvider) Positions() []tracker.Position { return s.positions }
func (s *stubProvider) LastSignals() []types.Signal   { return s.signals }

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(&stubProvider{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if body["status"] != "OK" {
		t.Errorf("Expected status OK, got %v", body["status"])
	}
	if body["service"] != "crypto-signal-bot" {
		t.Errorf("Unexpected service name %v", body["service"])
	}
}

func TestPositionsEndpoint(t *testing.T) {
	provider := &stubProvider{
		positions: []tracker.Position{{
			Symbol:     "BTCUSDT",
			EntryPrice: 35000,
			EntryTime:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
	srv := NewServer(provider)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got []tracker.Position
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Symbol != "BTCUSDT" || got[0].EntryPrice != 35000 {
		t.Errorf("Unexpected positions payload: %+v", got)
	}
}

func TestPositionsEndpointEmpty(t *testing.T) {
	srv := NewServer(&stubProvider{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil))

	// An empty state serializes as [], not null.
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty array, got %q", body)
	}
}

func TestSignalsEndpoint(t *testing.T) {
	provider := &stubProvider{
		signals: []types.Signal{{
			Symbol:      "ETHUSDT",
			ClosePrice:  2000,
			Opportunity: types.OpportunityBuy,
		}},
	}
	srv := NewServer(provider)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil))

	var got []types.Signal
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Opportunity != types.OpportunityBuy {
		t.Errorf("Unexpected signals payload: %+v", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(&stubProvider{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/positions", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", rec.Code)
	}
}
