package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
)

// FetchFunc performs the real retrieval for a cache miss.
// It must return a valid JSON payload.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Cache is the subset of cachestore.Store the gateway needs.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Put(ctx context.Context, key string, payload []byte) error
}

/*
Gateway answers requests from the cache and falls back to a FetchFunc on miss.

  - hit: the stored payload is returned and fn is never called
  - miss: fn runs under the configured timeout, its payload is stored
    (write-through) and the stored form is returned
  - fn errors are returned unchanged and nothing is stored

Retry and backoff belong to the FetchFunc, bounded by the timeout here.
*/
type Gateway struct {
	cache   Cache
	sink    metadata.MetadataSink
	timeout time.Duration
}

// NewGateway builds a Gateway. A zero timeout leaves misses unbounded.
func NewGateway(cache Cache, sink metadata.MetadataSink, timeout time.Duration) *Gateway {
	if sink == nil {
		sink = &metadata.NoopSink{}
	}
	return &Gateway{
		cache:   cache,
		sink:    sink,
		timeout: timeout,
	}
}

func (g *Gateway) Fetch(ctx context.Context, key string, fn FetchFunc) (json.RawMessage, error) {
	if payload, ok := g.cache.Get(ctx, key); ok {
		g.sink.RecordCacheLookup(key, true)
		return payload, nil
	}
	g.sink.RecordCacheLookup(key, false)

	fetchCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	payload, err := fn(fetchCtx)
	if err != nil {
		return nil, err
	}

	if err := g.cache.Put(ctx, key, payload); err != nil {
		return nil, &GatewayError{Key: key, Err: err}
	}
	// a miss answers with the stored form, the same bytes a later hit returns
	if stored, ok := g.cache.Get(ctx, key); ok {
		return stored, nil
	}
	return payload, nil
}
