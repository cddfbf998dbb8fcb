// Package ranking runs the LTV pipeline over normalized records and returns the
// top customers.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/ltvrank/internal/domain/dedupe"
	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/internal/domain/scoring"
	"github.com/okian/ltvrank/internal/domain/window"
	"github.com/okian/ltvrank/pkg/logger"
)

// Result carries the ranking and the intermediate figures behind it.
type Result struct {
	Entries   []model.LTVEntry
	Weeks     int
	Retained  int
	Customers int
}

// Ranker derives the week window, keeps the latest version of every entity,
// aggregates, scores and ranks.
type Ranker struct {
	deduper dedupe.Deduper
	scorer  *scoring.LTVScorer
	logger  logger.Logger
}

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithDeduper replaces the latest-version deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Ranker) {
		if d != nil {
			r.deduper = d
		}
	}
}

// WithScorer replaces the LTV scorer.
func WithScorer(s *scoring.LTVScorer) Option {
	return func(r *Ranker) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Ranker with the default deduper and scorer.
func New(opts ...Option) *Ranker {
	r := &Ranker{}
	for _, opt := range opts {
		opt(r)
	}
	if r.deduper == nil {
		r.deduper = dedupe.NewLatestDeduper(dedupe.WithLogger(r.logger))
	}
	if r.scorer == nil {
		r.scorer = scoring.NewLTVScorer(scoring.WithLogger(r.logger))
	}
	return r
}

// Rank returns up to x entries ordered by LTV descending. Equal scores keep
// customer collection order. x <= 0 yields an empty list.
func (r *Ranker) Rank(ctx context.Context, x int, records []model.Record) (Result, error) {
	weeks, err := window.Weeks(records)
	if err != nil {
		return Result{}, fmt.Errorf("derive week window: %w", err)
	}

	latest, err := r.deduper.Latest(ctx, records)
	if err != nil {
		return Result{}, fmt.Errorf("deduplicate: %w", err)
	}

	agg, err := scoring.Aggregate(latest, r.scorer.CurrencySuffix())
	if err != nil {
		return Result{}, fmt.Errorf("aggregate: %w", err)
	}

	scored, err := r.scorer.ScoreAll(ctx, agg, weeks)
	if err != nil {
		return Result{}, fmt.Errorf("score: %w", err)
	}

	if r.logger != nil {
		r.logger.Debug(ctx, "ranked customers",
			logger.Int("weeks", weeks),
			logger.Int("retained", len(latest)),
			logger.Int("customers", len(scored)),
		)
	}
	return Result{
		Entries:   Top(scored, x),
		Weeks:     weeks,
		Retained:  len(latest),
		Customers: len(scored),
	}, nil
}

// Top stably sorts a copy of entries by LTV descending and keeps the first x.
func Top(entries []model.LTVEntry, x int) []model.LTVEntry {
	out := make([]model.LTVEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LTV > out[j].LTV
	})
	if x < 0 {
		x = 0
	}
	if x < len(out) {
		out = out[:x]
	}
	return out
}

// TopLTV ranks records with default settings.
func TopLTV(ctx context.Context, x int, records []model.Record) ([]model.LTVEntry, error) {
	res, err := New().Rank(ctx, x, records)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}
