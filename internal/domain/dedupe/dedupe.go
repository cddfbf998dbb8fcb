// Package dedupe reduces a batch of records to the latest version of each entity.
package dedupe

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/pkg/logger"
)

// Deduper keeps one record per key: the one with the greatest
// (customer_id, key, event_time) tuple.
type Deduper interface {
	// Latest returns the surviving records in order of first appearance of their
	// key in (customer_id, key, event_time) order. The input is not modified.
	Latest(ctx context.Context, records []model.Record) ([]model.Record, error)

	Stats() Stats
}

// Stats describes the last Latest call.
type Stats struct {
	Input      int
	Retained   int
	Superseded int
}

// latestDeduper implements Deduper with a stable sort followed by a last-wins
// index keyed by record key.
type latestDeduper struct {
	sizeHint int
	logger   logger.Logger
	stats    Stats
}

// NewLatestDeduper creates a deduper with configuration options.
func NewLatestDeduper(opts ...Option) Deduper {
	d := &latestDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Latest implements Deduper.
func (d *latestDeduper) Latest(ctx context.Context, records []model.Record) ([]model.Record, error) {
	for _, rec := range records {
		if err := validate(rec); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dedupe: %w", err)
	}

	sorted := make([]model.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	hint := d.sizeHint
	if hint <= 0 || hint > len(sorted) {
		hint = len(sorted)
	}
	index := make(map[string]int, hint)
	out := make([]model.Record, 0, hint)
	for _, rec := range sorted {
		if i, ok := index[rec.Key.Value]; ok {
			// sorted ascending, so the later one is the newer version
			out[i] = rec
			continue
		}
		index[rec.Key.Value] = len(out)
		out = append(out, rec)
	}

	d.stats = Stats{Input: len(records), Retained: len(out), Superseded: len(records) - len(out)}
	if d.logger != nil {
		d.logger.Debug(ctx, "deduplicated records",
			logger.Int("input", d.stats.Input),
			logger.Int("retained", d.stats.Retained),
			logger.Int("superseded", d.stats.Superseded),
		)
	}
	return out, nil
}

// Stats implements Deduper.
func (d *latestDeduper) Stats() Stats {
	return d.stats
}

// validate checks the fields the sort tuple is built from.
func validate(rec model.Record) error {
	if _, err := rec.Require(model.FieldKey, rec.Key, model.ErrMissingKey); err != nil {
		return err
	}
	if _, err := rec.Require(model.FieldCustomerID, rec.CustomerID, model.ErrMissingField); err != nil {
		return err
	}
	if _, err := rec.Require(model.FieldEventTime, rec.EventTime, model.ErrMissingField); err != nil {
		return err
	}
	return nil
}

// less orders by (customer_id, key, event_time). event_time is fixed width and
// zero padded so string order is chronological within one offset.
func less(a, b model.Record) bool {
	if a.CustomerID.Value != b.CustomerID.Value {
		return a.CustomerID.Value < b.CustomerID.Value
	}
	if a.Key.Value != b.Key.Value {
		return a.Key.Value < b.Key.Value
	}
	return a.EventTime.Value < b.EventTime.Value
}
