package stream

import (
	"encoding/json"
	"strconv"
	"time"

	"quotefeed/internal/symbols"
)

// Binance speaks the combined-stream protocol: SUBSCRIBE/UNSUBSCRIBE frames
// name streams like "btcusdt@ticker", and 24hrTicker events carry numbers
// as strings.

type binanceCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type binanceTicker struct {
	Event         string `json:"e"`
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	PriceChange   string `json:"p"`
	PercentChange string `json:"P"`
	QuoteVolume   string `json:"q"`
}

func binanceFrame(symbol string, subscribe bool) ([]byte, bool) {
	st, ok := symbols.BinanceStream(symbol)
	if !ok {
		return nil, false
	}
	method := "SUBSCRIBE"
	if !subscribe {
		method = "UNSUBSCRIBE"
	}
	b, err := json.Marshal(binanceCommand{
		Method: method,
		Params: []string{st + "@ticker"},
		ID:     time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, false
	}
	return b, true
}

// parseBinance maps a 24hrTicker event back to the dash form symbol. Other
// frames (subscription acks, unknown streams) are dropped.
func parseBinance(data []byte) (Tick, bool) {
	var msg binanceTicker
	if err := json.Unmarshal(data, &msg); err != nil || msg.Event != "24hrTicker" {
		return Tick{}, false
	}
	sym, ok := symbols.FromBinanceStream(msg.Symbol)
	if !ok {
		return Tick{}, false
	}
	price, err := strconv.ParseFloat(msg.LastPrice, 64)
	if err != nil || price <= 0 {
		return Tick{}, false
	}
	change, _ := strconv.ParseFloat(msg.PriceChange, 64)
	pct, _ := strconv.ParseFloat(msg.PercentChange, 64)
	vol, _ := strconv.ParseFloat(msg.QuoteVolume, 64)
	return Tick{
		Symbol:        sym,
		Price:         price,
		Change:        change,
		ChangePercent: pct,
		Volume:        vol,
		Timestamp:     msg.EventTime,
	}, true
}
