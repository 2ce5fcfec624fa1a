package imagedims

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/IvanBrykalov/dimcache/cache"
)

// DefaultCacheSize is the capacity used when Config.CacheSize is zero.
const DefaultCacheSize = 50

var (
	// ErrNoSource is returned for a Source with neither asset id nor URI.
	ErrNoSource = errors.New("imagedims: source has no asset id or uri")

	// ErrNoMeasurer is returned by NewResolver without a Measurer.
	ErrNoMeasurer = errors.New("imagedims: no measurer configured")
)

// Measurer reports the pixel size of an image source.
type Measurer interface {
	Measure(ctx context.Context, src Source) (Dimensions, error)
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(ctx context.Context, src Source) (Dimensions, error)

// Measure calls f.
func (f MeasurerFunc) Measure(ctx context.Context, src Source) (Dimensions, error) {
	return f(ctx, src)
}

// Config configures a Resolver.
type Config struct {
	// CacheSize is the LRU capacity; 0 => DefaultCacheSize.
	// A negative value is a configuration error.
	CacheSize int

	Measurer Measurer

	// Metrics receives cache signals; nil => no metrics.
	Metrics cache.Metrics

	// Logger receives measurement failures; nil => discard.
	Logger *log.Logger
}

// Resolver resolves image dimensions through a bounded LRU cache.
// One Resolver is meant to be created at startup and shared.
type Resolver struct {
	c   cache.Cache[string, Dimensions]
	m   Measurer
	log *log.Logger
}

// NewResolver builds a Resolver and its cache.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Measurer == nil {
		return nil, ErrNoMeasurer
	}
	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	c, err := cache.New[string, Dimensions](cache.Options[string, Dimensions]{
		Capacity: size,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("imagedims: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{c: c, m: cfg.Measurer, log: logger}, nil
}

// Cache exposes the underlying cache for inspection.
func (r *Resolver) Cache() cache.Cache[string, Dimensions] { return r.c }

// Resolve returns the dimensions of src. A cached value is returned
// without measuring. On a miss the source is measured once, even with
// concurrent callers, and a successful result is cached.
//
// The measurement is shared and detached: if ctx ends first, Resolve
// returns ctx.Err() but the measurement finishes and is cached for the
// other callers. Measurers are expected to bound their own I/O.
//
// Failures are not cached: the error comes back with zero Dimensions and
// the next Resolve measures again.
func (r *Resolver) Resolve(ctx context.Context, src Source) (Dimensions, error) {
	key, ok := Key(src)
	if !ok {
		return Dimensions{}, ErrNoSource
	}
	d, err := r.c.GetOrLoad(ctx, key, func(ctx context.Context, _ string) (Dimensions, error) {
		return r.m.Measure(ctx, src)
	})
	if err != nil {
		if ctx.Err() == nil {
			r.log.Printf("imagedims: measure %q: %v", key, err)
		}
		return Dimensions{}, fmt.Errorf("imagedims: measure %q: %w", key, err)
	}
	return d, nil
}

// Watch resolves src in the background and hands the result to deliver,
// unless the caller lost interest first. Interest ends when the returned
// cancel is called or ctx is done; after cancel returns, deliver is never
// called. A failure is delivered as zero Dimensions.
//
// Losing interest does not abort the measurement: a result that settles
// later is still cached for the next caller. deliver runs on a separate
// goroutine and must not call cancel.
func (r *Resolver) Watch(ctx context.Context, src Source, deliver func(Dimensions)) (cancel func()) {
	var (
		mu         sync.Mutex
		interested = true
	)
	ctx, stop := context.WithCancel(ctx)

	go func() {
		defer stop()
		d, _ := r.Resolve(ctx, src)

		mu.Lock()
		defer mu.Unlock()
		if interested && ctx.Err() == nil {
			deliver(d)
		}
	}()

	return func() {
		mu.Lock()
		interested = false
		mu.Unlock()
		stop()
	}
}
