// Package registry keeps fitted models in memory between the fit request and
// the predict requests that follow it
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/soltixdb/decompose/internal/timeseries"
)

// ErrNotFound is returned for unknown, deleted or expired model ids
var ErrNotFound = errors.New("model not found")

// Entry is a fitted model together with what it was fitted from
type Entry struct {
	ID          string
	Model       *timeseries.Model
	Spec        timeseries.ModelSpec
	Method      string
	Rows        int
	FitDuration time.Duration
	CreatedAt   time.Time
}

// Registry is a size-bounded store of fitted models whose entries expire
// after a TTL. The least recently used model is dropped when full.
type Registry struct {
	cache   *expirable.LRU[string, *Entry]
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics

	// ids inside Delete, whose removal is not an eviction
	mu       sync.Mutex
	deleting map[string]struct{}
}

// New creates a registry. m may be nil.
func New(cfg config.RegistryConfig, logger *logging.Logger, m *metrics.Metrics) *Registry {
	r := &Registry{
		ttl:      cfg.TTL,
		logger:   logger,
		metrics:  m,
		deleting: make(map[string]struct{}),
	}
	r.cache = expirable.NewLRU[string, *Entry](cfg.MaxModels, r.onEvict, cfg.TTL)
	return r
}

// onEvict runs for every removal: capacity eviction, expiry and Delete
func (r *Registry) onEvict(id string, e *Entry) {
	r.mu.Lock()
	_, deleted := r.deleting[id]
	r.mu.Unlock()

	r.logger.Debug("Model removed from registry",
		"model_id", id,
		"age", time.Since(e.CreatedAt).String(),
		"deleted", deleted)
	if r.metrics != nil {
		r.metrics.ModelsActive.Dec()
		if !deleted {
			r.metrics.ModelsEvicted.Inc()
		}
	}
}

// Put stores e under a fresh uuid and returns the id
func (r *Registry) Put(e *Entry) string {
	e.ID = uuid.New().String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.cache.Add(e.ID, e)
	if r.metrics != nil {
		r.metrics.ModelsActive.Inc()
	}
	return e.ID
}

// Get returns the entry for id and marks it recently used
func (r *Registry) Get(id string) (*Entry, error) {
	e, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Delete removes id, reporting whether it was present
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	r.deleting[id] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.deleting, id)
		r.mu.Unlock()
	}()
	return r.cache.Remove(id)
}

// Len returns the number of live entries
func (r *Registry) Len() int {
	return r.cache.Len()
}

// ExpiresAt returns when e will expire, zero when entries never expire
func (r *Registry) ExpiresAt(e *Entry) time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(r.ttl)
}

// List returns the live entries, newest first
func (r *Registry) List() []*Entry {
	out := r.cache.Values()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
