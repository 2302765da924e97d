// Package api exposes a small status surface over HTTP: health, open
// positions, and the latest signal per symbol.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/types"
)

const serviceVersion = "1.0.0"

// StatusProvider supplies the live state the API reports.
type StatusProvider interface {
	Positions() []tracker.Position
	LastSignals() []types.Signal
}

type Server struct {
	provider StatusProvider
}

func NewServer(provider StatusProvider) *Server {
	return &Server{provider: provider}
}

// Serve starts the status API on addr. Blocks until the server exits; run
// it in a goroutine.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Status API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler returns the route mux, split out for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/signals", s.handleSignals)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"service":   "crypto-signal-bot",
		"version":   serviceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.provider.Positions()
	if positions == nil {
		positions = []tracker.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	signals := s.provider.LastSignals()
	if signals == nil {
		signals = []types.Signal{}
	}
	writeJSON(w, http.StatusOK, signals)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
