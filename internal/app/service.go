// Package service wires the batch pipeline: read, normalize, rank, write.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ltvrank/internal/adapters/batchio"
	"github.com/okian/ltvrank/internal/domain/dedupe"
	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/internal/domain/normalize"
	"github.com/okian/ltvrank/internal/domain/ranking"
	"github.com/okian/ltvrank/internal/domain/scoring"
	"github.com/okian/ltvrank/pkg/logger"
	"github.com/okian/ltvrank/pkg/metrics"
)

// Report summarizes one batch run.
type Report struct {
	RunID     string
	Events    int
	Records   int
	Retained  int
	Weeks     int
	Customers int
	Returned  int
	Duration  time.Duration
}

// Service runs LTV batches.
type Service struct {
	// Configuration
	topN           int
	outputFormat   string
	currencySuffix string
	multiplier     float64
	precision      int
	metricsFile    string

	metrics *metrics.Manager
	logger  logger.Logger
	now     func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTopN sets how many customers a run returns.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.topN = n
		}
	}
}

// WithOutputFormat sets the result encoding (json or yaml).
func WithOutputFormat(format string) Option {
	return func(s *Service) {
		if format != "" {
			s.outputFormat = format
		}
	}
}

// WithCurrencySuffix sets the literal stripped from order totals.
func WithCurrencySuffix(suffix string) Option {
	return func(s *Service) {
		if suffix != "" {
			s.currencySuffix = suffix
		}
	}
}

// WithLTVMultiplier sets the LTV scale factor.
func WithLTVMultiplier(m float64) Option {
	return func(s *Service) {
		if m > 0 {
			s.multiplier = m
		}
	}
}

// WithLTVPrecision sets the number of decimals LTV values keep.
func WithLTVPrecision(p int) Option {
	return func(s *Service) {
		if p >= 0 {
			s.precision = p
		}
	}
}

// WithMetrics sets the metrics manager. Defaults to the global one.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsFile makes every run write its metrics to path.
func WithMetricsFile(path string) Option {
	return func(s *Service) {
		s.metricsFile = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topN:           2,
		outputFormat:   batchio.FormatJSON,
		currencySuffix: scoring.DefaultCurrencySuffix,
		multiplier:     scoring.DefaultMultiplier,
		precision:      scoring.DefaultPrecision,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	return s
}

// Run executes one batch. On any failure nothing is written to sink.
func (s *Service) Run(ctx context.Context, src batchio.Source, sink batchio.Sink) (Report, error) {
	start := s.now()
	report := Report{RunID: uuid.NewString()}
	log := s.logger.With(logger.String("run_id", report.RunID))

	log.Info(ctx, "starting ltv batch",
		logger.String("input", src.Name()),
		logger.String("output", sink.Name()),
		logger.Int("top_n", s.topN),
	)

	err := s.run(ctx, log, src, sink, &report)
	report.Duration = s.now().Sub(start)

	if err != nil {
		kind := model.ErrorKind(err)
		s.metrics.RecordFailure(kind, report.Duration)
		s.flushMetrics(ctx, log)
		log.Error(ctx, "ltv batch aborted", logger.String("kind", kind), logger.Error(err))
		return report, err
	}

	s.metrics.UpdateRanking(report.Weeks, report.Customers, report.Returned)
	s.metrics.RecordSuccess(report.Duration, s.now())
	s.flushMetrics(ctx, log)
	log.Info(ctx, "ltv batch finished",
		logger.Int("events", report.Events),
		logger.Int("retained", report.Retained),
		logger.Int("weeks", report.Weeks),
		logger.Int("customers", report.Customers),
		logger.Int("returned", report.Returned),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Service) run(ctx context.Context, log logger.Logger, src batchio.Source, sink batchio.Sink, report *Report) error {
	records, err := s.load(ctx, log, src, report)
	if err != nil {
		return err
	}

	deduper := dedupe.NewLatestDeduper(dedupe.WithLogger(log), dedupe.WithSizeHint(len(records)))
	ranker := ranking.New(
		ranking.WithLogger(log),
		ranking.WithDeduper(deduper),
		ranking.WithScorer(scoring.NewLTVScorer(
			scoring.WithLogger(log),
			scoring.WithMultiplier(s.multiplier),
			scoring.WithPrecision(s.precision),
			scoring.WithCurrencySuffix(s.currencySuffix),
		)),
	)
	res, err := ranker.Rank(ctx, s.topN, records)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	s.metrics.RecordRecordsSuperseded(deduper.Stats().Superseded)
	report.Retained = res.Retained
	report.Weeks = res.Weeks
	report.Customers = res.Customers
	report.Returned = len(res.Entries)

	out, err := batchio.EncodeEntries(res.Entries, s.outputFormat)
	if err != nil {
		return err
	}
	return sink.Write(ctx, out)
}

// Normalize reads a batch and writes the normalized records instead of a ranking.
func (s *Service) Normalize(ctx context.Context, src batchio.Source, sink batchio.Sink) (Report, error) {
	start := s.now()
	report := Report{RunID: uuid.NewString()}
	log := s.logger.With(logger.String("run_id", report.RunID))

	records, err := s.load(ctx, log, src, &report)
	if err == nil {
		var out []byte
		out, err = batchio.Encode(records, s.outputFormat)
		if err == nil {
			err = sink.Write(ctx, out)
		}
	}
	report.Duration = s.now().Sub(start)
	if err != nil {
		log.Error(ctx, "normalize aborted", logger.String("kind", model.ErrorKind(err)), logger.Error(err))
		return report, err
	}
	log.Info(ctx, "normalized batch", logger.Int("records", report.Records), logger.Duration("duration", report.Duration))
	return report, nil
}

func (s *Service) load(ctx context.Context, log logger.Logger, src batchio.Source, report *Report) ([]model.Record, error) {
	data, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	events, err := batchio.DecodeEvents(data)
	if err != nil {
		return nil, err
	}
	report.Events = len(events)

	n := normalize.New(normalize.WithLogger(log))
	records, err := n.Run(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	report.Records = len(records)
	for typ, c := range n.Counts() {
		s.metrics.RecordEventsIngested(string(typ), c)
	}
	return records, nil
}

func (s *Service) flushMetrics(ctx context.Context, log logger.Logger) {
	if s.metricsFile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
		log.Warn(ctx, "failed to write metrics file", logger.String("path", s.metricsFile), logger.Error(err))
	}
}
