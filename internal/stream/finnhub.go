package stream

import (
	"encoding/json"
)

// Finnhub's trade stream is symbol-addressed: subscribe frames name the
// symbol directly and trade messages batch several executions.

type finnhubCommand struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type finnhubMessage struct {
	Type string `json:"type"`
	Data []struct {
		Symbol string  `json:"s"`
		Price  float64 `json:"p"`
		Volume float64 `json:"v"`
		Time   int64   `json:"t"`
	} `json:"data"`
}

func finnhubFrame(symbol string, subscribe bool) ([]byte, bool) {
	typ := "subscribe"
	if !subscribe {
		typ = "unsubscribe"
	}
	b, err := json.Marshal(finnhubCommand{Type: typ, Symbol: symbol})
	if err != nil {
		return nil, false
	}
	return b, true
}

// parseFinnhub expands one trade message into per-execution ticks. Pings
// and other frame types produce nothing.
func parseFinnhub(data []byte) []Tick {
	var msg finnhubMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "trade" {
		return nil
	}
	ticks := make([]Tick, 0, len(msg.Data))
	for _, tr := range msg.Data {
		if tr.Symbol == "" || tr.Price <= 0 {
			continue
		}
		ticks = append(ticks, Tick{
			Symbol:    tr.Symbol,
			Price:     tr.Price,
			Volume:    tr.Volume,
			Timestamp: tr.Time,
		})
	}
	return ticks
}
