// Package stream delivers live ticker updates over exchange websocket
// feeds. Crypto symbols ride the Binance public stream, everything else
// the Finnhub trade stream. Consumers subscribe per symbol and receive
// ticks on a callback until they cancel.
package stream

import (
	"sync"
)

// Tick is one live price update. Finnhub trade events carry no 24h range,
// so Change/ChangePercent stay zero there.
type Tick struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	Timestamp     int64   `json:"timestamp"` // epoch milliseconds
}

// Handler receives ticks for a subscribed symbol. It runs on the feed's
// read goroutine and must not block.
type Handler func(Tick)

// registry tracks per-symbol handlers. The last cancel for a symbol
// reports it as gone so the manager can unsubscribe upstream.
type registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

func newRegistry() *registry {
	return &registry{subs: make(map[string]map[uint64]Handler)}
}

// add registers h for symbol. first reports whether this is the symbol's
// first handler. The returned cancel reports whether it removed the last one.
func (r *registry) add(symbol string, h Handler) (cancel func() bool, first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs, ok := r.subs[symbol]
	if !ok {
		hs = make(map[uint64]Handler)
		r.subs[symbol] = hs
	}
	r.nextID++
	id := r.nextID
	hs[id] = h
	var once sync.Once
	cancel = func() bool {
		last := false
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if hs, ok := r.subs[symbol]; ok {
				delete(hs, id)
				if len(hs) == 0 {
					delete(r.subs, symbol)
					last = true
				}
			}
		})
		return last
	}
	return cancel, !ok
}

// symbols returns a snapshot of subscribed symbols matching the filter.
func (r *registry) symbols(match func(string) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for sym := range r.subs {
		if match(sym) {
			out = append(out, sym)
		}
	}
	return out
}

// notify fans t out to every handler registered for its symbol.
func (r *registry) notify(t Tick) int {
	r.mu.Lock()
	hs := make([]Handler, 0, len(r.subs[t.Symbol]))
	for _, h := range r.subs[t.Symbol] {
		hs = append(hs, h)
	}
	r.mu.Unlock()
	for _, h := range hs {
		h(t)
	}
	return len(hs)
}
