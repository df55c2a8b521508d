// Package validate normalizes and sanity-checks provider output against the
// canonical quote/candle schema before it is cached or returned.
package validate

import (
	"errors"
	"fmt"
	"math"
	"time"

	"quotefeed/internal/quote"
)

// ValidationError reports a single malformed field with its offending value.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func checkString(v, field string) error {
	if v == "" {
		return &ValidationError{Field: field, Value: v, Reason: "expected non-empty string"}
	}
	return nil
}

func checkFinite(v float64, field string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: v, Reason: "expected finite number"}
	}
	return nil
}

func checkPositive(v float64, field string) error {
	if err := checkFinite(v, field); err != nil {
		return err
	}
	if v <= 0 {
		return &ValidationError{Field: field, Value: v, Reason: "expected positive number"}
	}
	return nil
}

func checkNonNegative(v float64, field string) error {
	if err := checkFinite(v, field); err != nil {
		return err
	}
	if v < 0 {
		return &ValidationError{Field: field, Value: v, Reason: "expected non-negative number"}
	}
	return nil
}

// Quote validates q strictly: every price-like field must be positive and
// finite, volume non-negative, timestamp present. Used outside the aggregator
// where data contracts are firm.
func Quote(q quote.Quote) (quote.Quote, error) {
	checks := []error{
		checkString(q.Symbol, "symbol"),
		checkPositive(q.Price, "price"),
		checkFinite(q.Change, "change"),
		checkFinite(q.ChangePercent, "changePercent"),
		checkNonNegative(q.Volume, "volume"),
		checkPositive(q.High, "high"),
		checkPositive(q.Low, "low"),
		checkPositive(q.Open, "open"),
		checkPositive(q.PreviousClose, "previousClose"),
		checkString(q.Source, "source"),
	}
	for _, err := range checks {
		if err != nil {
			return quote.Quote{}, err
		}
	}
	if q.Timestamp <= 0 {
		return quote.Quote{}, &ValidationError{Field: "timestamp", Value: q.Timestamp, Reason: "expected positive epoch millis"}
	}
	return q, nil
}

// QuoteLoose validates q permissively, for provider responses that may
// legitimately omit fields. A zero high/low/open/previousClose is replaced by
// the trade price, a zero or negative timestamp by the current time; change,
// changePercent and volume default to zero values anyway. Negative or
// non-finite values still fail. Price must be positive: a non-positive price
// means "no quote", never a valid record.
func QuoteLoose(q quote.Quote) (quote.Quote, error) {
	if err := checkString(q.Symbol, "symbol"); err != nil {
		return quote.Quote{}, err
	}
	if err := checkPositive(q.Price, "price"); err != nil {
		return quote.Quote{}, err
	}
	if err := checkFinite(q.Change, "change"); err != nil {
		return quote.Quote{}, err
	}
	if err := checkFinite(q.ChangePercent, "changePercent"); err != nil {
		return quote.Quote{}, err
	}
	if err := checkNonNegative(q.Volume, "volume"); err != nil {
		return quote.Quote{}, err
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"high", &q.High},
		{"low", &q.Low},
		{"open", &q.Open},
		{"previousClose", &q.PreviousClose},
	} {
		if *f.v == 0 {
			*f.v = q.Price
			continue
		}
		if err := checkPositive(*f.v, f.name); err != nil {
			return quote.Quote{}, err
		}
	}
	if q.Timestamp <= 0 {
		q.Timestamp = time.Now().UnixMilli()
	}
	if q.Source == "" {
		q.Source = "unknown"
	}
	return q, nil
}

// SafeQuote is QuoteLoose without an error path: it reports ok=false on any
// validation failure. Used at the aggregator boundary where upstream data
// quality cannot be trusted and a hard failure must not propagate.
func SafeQuote(q quote.Quote) (quote.Quote, bool) {
	v, err := QuoteLoose(q)
	if err != nil {
		return quote.Quote{}, false
	}
	return v, true
}

// Candles validates every element of a candle sequence, annotating the
// offending index in the error field name (e.g. "candles[3].close").
func Candles(cs []quote.Candle) error {
	for i, c := range cs {
		if err := checkString(c.Time, fmt.Sprintf("candles[%d].time", i)); err != nil {
			return err
		}
		for _, f := range []struct {
			name string
			v    float64
		}{
			{"open", c.Open},
			{"high", c.High},
			{"low", c.Low},
			{"close", c.Close},
		} {
			if err := checkPositive(f.v, fmt.Sprintf("candles[%d].%s", i, f.name)); err != nil {
				return err
			}
		}
		if err := checkNonNegative(c.Volume, fmt.Sprintf("candles[%d].volume", i)); err != nil {
			return err
		}
	}
	return nil
}
