// Package dispatch delivers one message to one destination through a
// registered adapter, under the destination's rate limit.
package dispatch

import (
	"context"
	"encoding/json"
	"sync"

	"dispatcher/pkg/models"
)

// Request is everything an adapter needs to perform a single delivery.
type Request struct {
	StreamType     models.StreamType
	GundiID        string
	RelatedTo      string
	DataProviderID string
	Destination    Destination
	Payload        json.RawMessage
	// Related holds the metadata buffered by the companion part, if any.
	Related json.RawMessage
}

type Response struct {
	StatusCode int
	Body       string
}

// Adapter performs the destination-specific side effect. Errors must be
// returned unmodified so the caller can classify them.
type Adapter interface {
	Deliver(ctx context.Context, req Request) (*Response, error)
}

// AdapterFunc lets a plain function serve as an Adapter.
type AdapterFunc func(ctx context.Context, req Request) (*Response, error)

func (f AdapterFunc) Deliver(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Registry maps stream types to adapters. It is filled at startup.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.StreamType]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.StreamType]Adapter)}
}

func (r *Registry) Register(streamType models.StreamType, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[streamType] = adapter
}

func (r *Registry) Lookup(streamType models.StreamType) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[streamType]
	return a, ok
}

func (r *Registry) Supports(streamType models.StreamType) bool {
	_, ok := r.Lookup(streamType)
	return ok
}
