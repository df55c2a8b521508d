package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quotefeed/internal/aggregate"
	"quotefeed/internal/quote"
	"quotefeed/internal/stream"
)

type api struct {
	agg *aggregate.Aggregator
	mgr *stream.Manager
}

type candlesResponse struct {
	Symbol     string         `json:"symbol"`
	Resolution string         `json:"resolution"`
	Candles    []quote.Candle `json:"candles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleQuote serves GET /api/quote?symbol=AAPL. A fully exhausted cascade
// is a 404, never a 5xx: the symbol may simply not exist.
func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	q, ok := a.agg.GetQuote(r.Context(), symbol)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleCandles serves GET /api/candles?symbol=AAPL&resolution=D&from=..&to=..
// from/to are epoch seconds and default to the last 30 days. The candle list
// may be empty; that is a 200, not an error.
func (a *api) handleCandles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	qp := r.URL.Query()
	symbol := strings.TrimSpace(qp.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	resolution := qp.Get("resolution")
	if resolution == "" {
		resolution = "D"
	}
	to, err := epochParam(qp.Get("to"), time.Now().Unix())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to param")
		return
	}
	from, err := epochParam(qp.Get("from"), to-30*24*60*60)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from param")
		return
	}
	if from >= to {
		writeError(w, http.StatusBadRequest, "from must be before to")
		return
	}
	candles := a.agg.GetCandles(r.Context(), symbol, resolution, from, to)
	writeJSON(w, http.StatusOK, candlesResponse{
		Symbol:     symbol,
		Resolution: resolution,
		Candles:    candles,
	})
}

func epochParam(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad epoch %q", v)
	}
	return n, nil
}

// handleTicker serves GET /api/ticker?symbols=BTC-USD,AAPL as a server-sent
// event stream, one JSON tick per event. Slow readers drop ticks instead of
// stalling the feed goroutines.
func (a *api) handleTicker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if a.mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	syms := splitCSV(r.URL.Query().Get("symbols"))
	if len(syms) == 0 {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch := make(chan stream.Tick, 64)
	for _, sym := range syms {
		cancel := a.mgr.Subscribe(sym, func(t stream.Tick) {
			select {
			case ch <- t:
			default:
			}
		})
		defer cancel()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case t := <-ch:
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
