// Package sources defines the collector contract shared by all external
// release sources and the rate-limited HTTP client they fetch through. Each
// source package owns its typed raw item; normalization into the canonical
// candidate model lives in the normalize package.
package sources

import (
	"context"
)

// RawItem is one unparsed entry fetched from an external source. Concrete
// types live in the per-source packages; the tagged SourceID drives
// normalizer dispatch.
type RawItem interface {
	SourceID() string
}

// Collector fetches raw items for one external source. Implementations honor
// their own rate limit and timeout so a blocked source never stalls another.
//
// cursor is an opaque position persisted between cycles; "" means fetch the
// initial window. The returned cursor replaces it after a successful fetch.
type Collector interface {
	Name() string
	Fetch(ctx context.Context, cursor string) ([]RawItem, string, error)
}
