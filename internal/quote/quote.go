package quote

// Quote is the canonical real-time snapshot produced by the aggregator.
// All provider-specific shapes are converted into this at the client boundary.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previousClose"`
	Volume        float64 `json:"volume"`
	// Timestamp is epoch milliseconds of the underlying observation.
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// Candle is one canonical OHLCV bucket. Time is a calendar date (YYYY-MM-DD);
// sequences are ordered by Time ascending with no duplicates.
type Candle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
