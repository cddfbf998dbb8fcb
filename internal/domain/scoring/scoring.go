// Package scoring aggregates order totals and site visits per customer and turns
// them into a simple lifetime value.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/pkg/logger"
)

// Default scoring configuration constants.
const (
	DefaultMultiplier     = 10
	DefaultPrecision      = 2
	DefaultCurrencySuffix = "USD"
)

// ErrInvalidWindow is returned when scoring is asked to divide by a window below one week.
var ErrInvalidWindow = errors.New("week window must be at least 1")

// Option applies a configuration option to the LTVScorer.
type Option func(*LTVScorer)

// WithMultiplier sets the factor applied to spend rate times visit rate.
func WithMultiplier(m float64) Option {
	return func(s *LTVScorer) {
		if m > 0 {
			s.multiplier = m
		}
	}
}

// WithPrecision sets the number of decimals scores are rounded to.
func WithPrecision(p int) Option {
	return func(s *LTVScorer) {
		if p >= 0 {
			s.precision = p
		}
	}
}

// WithCurrencySuffix sets the literal stripped from order totals before parsing.
func WithCurrencySuffix(suffix string) Option {
	return func(s *LTVScorer) {
		if suffix != "" {
			s.currencySuffix = suffix
		}
	}
}

// WithLogger sets the logger used for per-customer detail.
func WithLogger(l logger.Logger) Option {
	return func(s *LTVScorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Input abstracts the aggregated figures needed to score one customer.
type Input struct {
	CustomerID string
	Amount     float64
	Visits     int
	Weeks      int
}

// Scorer computes an LTV entry from an input.
type Scorer interface {
	Score(ctx context.Context, in Input) (model.LTVEntry, error)
}

// LTVScorer implements Scorer as (amount/weeks) * (visits/weeks) * multiplier.
type LTVScorer struct {
	multiplier     float64
	precision      int
	currencySuffix string
	logger         logger.Logger
}

// NewLTVScorer creates a scorer with configuration options.
func NewLTVScorer(opts ...Option) *LTVScorer {
	s := &LTVScorer{
		multiplier:     DefaultMultiplier,
		precision:      DefaultPrecision,
		currencySuffix: DefaultCurrencySuffix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrencySuffix returns the literal stripped from order totals.
func (s *LTVScorer) CurrencySuffix() string { return s.currencySuffix }

// Score computes the LTV for a single customer.
func (s *LTVScorer) Score(ctx context.Context, in Input) (model.LTVEntry, error) {
	if in.Weeks < 1 {
		return model.LTVEntry{}, fmt.Errorf("score %s: %w", in.CustomerID, ErrInvalidWindow)
	}
	weeks := float64(in.Weeks)
	raw := (in.Amount / weeks) * (float64(in.Visits) / weeks) * s.multiplier
	ltv := Round(raw, s.precision)

	if s.logger != nil {
		s.logger.Debug(ctx, "scored customer",
			logger.String("customer_id", in.CustomerID),
			logger.Float64("amount", in.Amount),
			logger.Int("weeks", in.Weeks),
			logger.Int("visits", in.Visits),
			logger.Float64("ltv", ltv),
		)
	}
	return model.LTVEntry{CustomerID: in.CustomerID, LTV: model.Score(ltv)}, nil
}

// ScoreAll scores every known customer in collection order.
func (s *LTVScorer) ScoreAll(ctx context.Context, agg Aggregates, weeks int) ([]model.LTVEntry, error) {
	out := make([]model.LTVEntry, 0, len(agg.Customers))
	for _, id := range agg.Customers {
		e, err := s.Score(ctx, Input{
			CustomerID: id,
			Amount:     agg.Amounts[id],
			Visits:     agg.Visits[id],
			Weeks:      weeks,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Round rounds x to precision decimals using the shortest correctly rounded
// decimal representation, ties to even on the exact binary value.
func Round(x float64, precision int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', precision, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// ParseAmount parses an order total such as "12.34 USD". Every occurrence of
// suffix and every space is removed before parsing.
func ParseAmount(raw any, suffix string) (float64, error) {
	text, ok := model.ScalarText(raw)
	if !ok {
		return 0, fmt.Errorf("unsupported value %v", raw)
	}
	if suffix != "" {
		text = strings.ReplaceAll(text, suffix, "")
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, " ", ""))
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount %q is not finite", text)
	}
	return v, nil
}
