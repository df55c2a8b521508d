// Package provider holds contracts shared by the upstream data source
// clients. Each client lives in its own subpackage, decodes its provider's
// wire shape privately, and returns canonical quote types.
package provider

import "errors"

// ErrNoData is returned by a client when the upstream answered successfully
// but carried no usable records for the requested symbol or range. The
// aggregator treats it like any other provider failure: log and move on to
// the next source in the cascade.
var ErrNoData = errors.New("provider: no data")
