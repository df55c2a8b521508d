// Package dedup collapses concurrent identical requests into one in-flight
// computation. It adds no result lifetime: once a call settles, the next call
// for the same key starts fresh. Caching is the cache package's job.
package dedup

import "golang.org/x/sync/singleflight"

// Group deduplicates calls sharing a key. The zero value is ready to use.
// All callers that join before settlement receive the same value or the
// same error.
type Group[T any] struct {
	sf singleflight.Group
}

// Do executes fn for key unless an identical call is already in flight, in
// which case it waits for that call and returns its outcome.
func (g *Group[T]) Do(key string, fn func() (T, error)) (T, error) {
	v, err, _ := g.sf.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
