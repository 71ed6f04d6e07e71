package locator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
	"github.com/couchcryptid/logistics-locator/internal/spatial"
)

// snapshot is an immutable view of the directory. index is nil when the
// directory is fetched per query.
type snapshot struct {
	entries  []domain.DirectoryEntry
	index    *spatial.Index
	loadedAt time.Time
}

// directory hands out snapshots. With ttl == 0 every call reads the store;
// otherwise an indexed snapshot is reused until it ages out or a write
// through the Service invalidates it.
type directory struct {
	store   domain.DirectoryStore
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	current *snapshot
}

func newDirectory(store domain.DirectoryStore, ttl time.Duration, clk clockwork.Clock, metrics *observability.Metrics) *directory {
	return &directory{store: store, ttl: ttl, clock: clk, metrics: metrics}
}

func (d *directory) load(ctx context.Context) (*snapshot, error) {
	if d.ttl <= 0 {
		entries, err := d.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load directory: %w", err)
		}
		return &snapshot{entries: entries, loadedAt: d.clock.Now()}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && d.clock.Since(d.current.loadedAt) < d.ttl {
		return d.current, nil
	}
	entries, err := d.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	d.current = &snapshot{entries: entries, index: spatial.New(entries), loadedAt: d.clock.Now()}
	d.metrics.SnapshotRefreshes.Inc()
	return d.current, nil
}

func (d *directory) invalidate() {
	d.mu.Lock()
	d.current = nil
	d.mu.Unlock()
}
