// Package normalize converts raw events into canonical records.
package normalize

import (
	"context"
	"fmt"

	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/pkg/logger"
)

// Normalize converts a single event. Known fields are promoted to the top level
// with their values untouched, everything else lands in Details under its
// original name. CUSTOMER records always take their customer id from key.
// Only type is checked here; the other fields are checked where they are used.
func Normalize(ev model.Event, seq int) (model.Record, error) {
	rec := model.Record{Seq: seq, Details: make(map[string]any, len(ev))}

	raw, ok := ev[model.FieldType]
	if !ok {
		return model.Record{}, eventError(seq, model.FieldType, model.ErrMissingField)
	}
	typ, ok := model.ScalarText(raw)
	if !ok {
		return model.Record{}, eventError(seq, model.FieldType, model.ErrInvalidField)
	}
	rec.Type = model.EventType(typ)

	for name, v := range ev {
		if !model.IsKnownField(name) {
			rec.Details[name] = v
			continue
		}
		if name == model.FieldType {
			continue
		}
		switch name {
		case model.FieldVerb:
			rec.Verb = model.PresentRaw(v)
		case model.FieldKey:
			rec.Key = model.PresentRaw(v)
		case model.FieldEventTime:
			rec.EventTime = model.PresentRaw(v)
		case model.FieldCustomerID:
			rec.CustomerID = model.PresentRaw(v)
		}
	}

	if rec.Type == model.TypeCustomer {
		if !rec.Key.Set {
			return model.Record{}, model.NewRecordError(rec, model.FieldKey, model.ErrMissingKey, nil)
		}
		rec.CustomerID = rec.Key
	}
	return rec, nil
}

// NormalizeAll appends the normalized form of every event to dst in input order.
// It stops at the first failure and returns dst unchanged in that case.
func NormalizeAll(ctx context.Context, events []model.Event, dst []model.Record) ([]model.Record, error) {
	out := dst
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return dst, fmt.Errorf("normalize: %w", err)
		}
		rec, err := Normalize(ev, i)
		if err != nil {
			return dst, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func eventError(seq int, field string, kind error) error {
	return &model.RecordError{Seq: seq, Field: field, Kind: kind}
}

// Normalizer wraps NormalizeAll with logging and per-type counts.
type Normalizer struct {
	logger logger.Logger
	counts map[model.EventType]int
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for per-batch summaries.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{counts: make(map[model.EventType]int)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run normalizes the batch and tallies records by type.
func (n *Normalizer) Run(ctx context.Context, events []model.Event) ([]model.Record, error) {
	records, err := NormalizeAll(ctx, events, make([]model.Record, 0, len(events)))
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		n.counts[rec.Type]++
	}
	if n.logger != nil {
		for typ, c := range n.counts {
			n.logger.Debug(ctx, "normalized records", logger.String("type", string(typ)), logger.Int("count", c))
		}
	}
	return records, nil
}

// Counts returns the number of records seen per type across all runs.
func (n *Normalizer) Counts() map[model.EventType]int {
	out := make(map[model.EventType]int, len(n.counts))
	for k, v := range n.counts {
		out[k] = v
	}
	return out
}
