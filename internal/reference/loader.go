package reference

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/insighted/schoolprofile/internal/logger"
)

// Status describes the loader's current dataset.
type Status struct {
	Source    string    `json:"source"`
	Loaded    bool      `json:"loaded"`
	Rows      int       `json:"rows"`
	Schools   int       `json:"schools"`
	Headers   HeaderMap `json:"headers,omitempty"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Loader builds the reference index from a source once per process and
// caches it. Concurrent callers share a single in-flight load.
type Loader struct {
	source Source
	log    *logger.Logger
	now    func() time.Time
	onLoad func(Status)

	group   singleflight.Group
	current atomic.Pointer[Index]

	mu      sync.RWMutex
	status  Status
	failure error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithClock sets the time source used for load timestamps.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// WithOnLoad registers a callback run after every successful load.
func WithOnLoad(fn func(Status)) LoaderOption {
	return func(l *Loader) { l.onLoad = fn }
}

// NewLoader returns a loader for source. Nothing is read until the first call
// to Index or Reload.
func NewLoader(source Source, log *logger.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		source: source,
		log:    log,
		now:    time.Now,
		status: Status{Source: source.Name()},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Index returns the cached index, loading it on first use. Once a load has
// failed with no index in service, Index returns that failure, wrapping
// ErrEmptyReference, without touching the source until Reload succeeds.
func (l *Loader) Index(ctx context.Context) (*Index, error) {
	if ix := l.current.Load(); ix != nil {
		return ix, nil
	}
	l.mu.RLock()
	failure := l.failure
	l.mu.RUnlock()
	if failure != nil {
		return nil, failure
	}
	return l.load(ctx)
}

// Reload rebuilds the index from the source. On failure the previous index,
// if any, stays in service.
func (l *Loader) Reload(ctx context.Context) (*Index, error) {
	return l.load(ctx)
}

// Status returns a snapshot of the loader state.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

func (l *Loader) load(ctx context.Context) (*Index, error) {
	v, err, _ := l.group.Do("load", func() (interface{}, error) {
		start := l.now()
		ds, err := l.source.Load(ctx)
		if err != nil {
			l.fail(ctx, err)
			return nil, fmt.Errorf("load reference %s: %w", l.source.Name(), err)
		}

		rows, headers := ds.ReferenceRows()
		ix, err := Build(rows)
		if err != nil {
			l.fail(ctx, err)
			return nil, fmt.Errorf("build reference %s: %w", l.source.Name(), err)
		}
		l.current.Store(ix)

		st := Status{
			Source:   l.source.Name(),
			Loaded:   true,
			Rows:     ix.Len(),
			Schools:  ix.IdentifierCount(),
			Headers:  headers,
			LoadedAt: l.now(),
		}
		l.mu.Lock()
		l.status = st
		l.failure = nil
		l.mu.Unlock()

		if l.log != nil {
			l.log.Info("Reference dataset loaded", map[string]interface{}{
				"source":      st.Source,
				"rows":        st.Rows,
				"schools":     st.Schools,
				"headers":     len(headers),
				"duration_ms": st.LoadedAt.Sub(start).Milliseconds(),
			})
		}
		if l.onLoad != nil {
			l.onLoad(st)
		}
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// fail records err. A load cut short by the caller's context is not
// remembered, so the next caller tries again.
func (l *Loader) fail(ctx context.Context, err error) {
	l.mu.Lock()
	l.status.LastError = err.Error()
	if ctx.Err() == nil {
		l.failure = fmt.Errorf("%w: last load from %s failed: %w", ErrEmptyReference, l.source.Name(), err)
	}
	l.mu.Unlock()
	if l.log != nil {
		l.log.Error("Reference dataset load failed", err, map[string]interface{}{
			"source": l.source.Name(),
		})
	}
}
