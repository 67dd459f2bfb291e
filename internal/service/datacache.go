package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	cfotel "github.com/bussola-offshore/bussola/internal/adapter/otel"
	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/port/cache"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
)

const rowsKeyPrefix = "rows:"

// snapshot is the cached form of one table read.
type snapshot struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Records   []rowstore.Record `json:"records"`
}

// DataCache memoizes whole-table reads for a fixed window. Entries are keyed
// by table name only. Failed reads are never stored.
type DataCache struct {
	store   rowstore.Store
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *cfotel.Metrics
	now     func() time.Time // for testing
}

// NewDataCache creates a DataCache reading from store and keeping snapshots
// in c for ttl.
func NewDataCache(store rowstore.Store, c cache.Cache, ttl time.Duration) *DataCache {
	return &DataCache{store: store, cache: c, ttl: ttl, now: time.Now}
}

// SetMetrics attaches OTel counters for hits, misses and failed fetches.
func (d *DataCache) SetMetrics(m *cfotel.Metrics) {
	d.metrics = m
}

// Get returns every record of table. Within the window after a successful
// read the stored snapshot is returned without contacting the store. When
// the read fails the result is an empty slice and an error wrapping
// domain.ErrFetch.
func (d *DataCache) Get(ctx context.Context, table string) ([]rowstore.Record, error) {
	key := rowsKeyPrefix + table
	attrs := metric.WithAttributes(attribute.String("table", table))

	if data, ok := d.lookup(ctx, key); ok {
		if recs, err := decodeSnapshot(data); err == nil {
			if d.metrics != nil {
				d.metrics.CacheHits.Add(ctx, 1, attrs)
			}
			return recs, nil
		}
	}

	// Concurrent misses for one table share a single store call. The fetch
	// is detached from the first caller's cancellation so the others still
	// get its result; the store client enforces its own timeout.
	v, err, _ := d.group.Do(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if data, ok := d.lookup(fctx, key); ok {
			return data, nil
		}
		if d.metrics != nil {
			d.metrics.CacheMisses.Add(fctx, 1, attrs)
		}
		return d.fetch(fctx, table, key)
	})
	if err != nil {
		if d.metrics != nil {
			d.metrics.FetchFailures.Add(ctx, 1, attrs)
		}
		if !errors.Is(err, domain.ErrFetch) {
			err = fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}
		return []rowstore.Record{}, fmt.Errorf("data cache %s: %w", table, err)
	}

	recs, err := decodeSnapshot(v.([]byte))
	if err != nil {
		return []rowstore.Record{}, fmt.Errorf("data cache %s: %w: %w", table, domain.ErrFetch, err)
	}
	return recs, nil
}

// Invalidate drops the stored snapshot of table so the next Get refetches.
func (d *DataCache) Invalidate(ctx context.Context, table string) error {
	if err := d.cache.Delete(ctx, rowsKeyPrefix+table); err != nil {
		return fmt.Errorf("invalidate %s: %w", table, err)
	}
	return nil
}

// lookup returns a fresh snapshot for key. Backend errors and stale or
// unreadable entries count as a miss.
func (d *DataCache) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "data cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var head struct {
		FetchedAt time.Time `json:"fetched_at"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		slog.WarnContext(ctx, "data cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	if d.now().Sub(head.FetchedAt) >= d.ttl {
		return nil, false
	}
	return data, true
}

func (d *DataCache) fetch(ctx context.Context, table, key string) ([]byte, error) {
	ctx, span := cfotel.StartFetchSpan(ctx, table)
	defer span.End()

	start := time.Now()
	recs, err := d.store.SelectAll(ctx, table)
	if d.metrics != nil {
		d.metrics.FetchDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("table", table)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		slog.WarnContext(ctx, "row store fetch failed", "table", table, "error", err)
		return nil, err
	}
	if recs == nil {
		recs = []rowstore.Record{}
	}

	data, err := json.Marshal(snapshot{FetchedAt: d.now(), Records: recs})
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %w", domain.ErrFetch, err)
	}

	if err := d.cache.Set(ctx, key, data, d.ttl); err != nil {
		slog.WarnContext(ctx, "data cache set failed", "key", key, "error", err)
	}

	slog.DebugContext(ctx, "table fetched", "table", table, "records", len(recs))
	return data, nil
}

// decodeSnapshot returns the records of a stored snapshot. Both the hit and
// the miss path go through here so callers see identical values (numbers as
// json.Number, timestamps as strings) and never share a slice.
func decodeSnapshot(data []byte) ([]rowstore.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Records == nil {
		s.Records = []rowstore.Record{}
	}
	return s.Records, nil
}
