// Package eventgen produces synthetic customer event batches for demos and load
// checks of the ranker.
package eventgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ltvrank/internal/domain/model"
)

// TimeLayout renders event_time with fixed-width microseconds and offset.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Default generation constants.
const (
	defaultCustomers     = 100
	defaultWeeks         = 4
	defaultMaxOrders     = 5
	defaultMaxVisits     = 20
	defaultUpdateRatio   = 0.1
	defaultImageRatio    = 0.05
	defaultSeed          = 42
	centsPerDollar       = 100
	maxOrderCents        = 50_000
	minOrderCents        = 100
	hoursPerWeek         = 7 * 24
	updateDelayMaxHours  = 48
	secondsPerHour       = 3600
	microsecondsPerSec   = 1_000_000
	lastNamesPoolSize    = 8
	citiesPoolSize       = 6
	customerLeadTimeHour = 1
)

var (
	lastNames = [lastNamesPoolSize]string{"Smith", "Garcia", "Chen", "Okafor", "Novak", "Haddad", "Silva", "Kowalski"}
	cities    = [citiesPoolSize]string{"Middletown", "Springfield", "Riverside", "Fairview", "Franklin", "Georgetown"}
)

// ErrInvalidConfig is returned for generation settings that cannot produce a batch.
var ErrInvalidConfig = errors.New("invalid generator config")

// Config controls the shape of a generated batch.
type Config struct {
	Customers   int       // registered customers
	Weeks       int       // weeks the events are spread over
	MaxOrders   int       // per customer, uniformly 1..MaxOrders
	MaxVisits   int       // per customer, uniformly 0..MaxVisits
	UpdateRatio float64   // share of orders that get a later UPDATE version
	ImageRatio  float64   // share of customers that also upload an image (unknown type)
	Start       time.Time // earliest event time
	Seed        int64     // seed for reproducible batches
}

// DefaultConfig returns a small, reproducible batch configuration.
func DefaultConfig() Config {
	return Config{
		Customers:   defaultCustomers,
		Weeks:       defaultWeeks,
		MaxOrders:   defaultMaxOrders,
		MaxVisits:   defaultMaxVisits,
		UpdateRatio: defaultUpdateRatio,
		ImageRatio:  defaultImageRatio,
		Start:       time.Date(2017, time.January, 2, 0, 0, 0, 0, time.UTC),
		Seed:        defaultSeed,
	}
}

func (c Config) validate() error {
	switch {
	case c.Customers < 0:
		return fmt.Errorf("%w: customers must not be negative", ErrInvalidConfig)
	case c.Weeks < 1:
		return fmt.Errorf("%w: weeks must be at least 1", ErrInvalidConfig)
	case c.MaxOrders < 1:
		return fmt.Errorf("%w: max orders must be at least 1", ErrInvalidConfig)
	case c.MaxVisits < 0:
		return fmt.Errorf("%w: max visits must not be negative", ErrInvalidConfig)
	case c.UpdateRatio < 0 || c.UpdateRatio > 1:
		return fmt.Errorf("%w: update ratio must be within [0,1]", ErrInvalidConfig)
	case c.ImageRatio < 0 || c.ImageRatio > 1:
		return fmt.Errorf("%w: image ratio must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

type generator struct {
	cfg Config
	rng *rand.Rand
}

// Generate builds a batch. The same Config always yields the same events,
// keys included.
func Generate(ctx context.Context, cfg Config) ([]model.Event, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))} //nolint:gosec // reproducible batches, not security sensitive

	events := make([]model.Event, 0, cfg.Customers*(2+cfg.MaxOrders+cfg.MaxVisits/2))
	for i := 0; i < cfg.Customers; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		batch, err := g.customerEvents()
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
	}

	// interleave so input order carries no meaning
	g.rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	return events, nil
}

func (g *generator) customerEvents() ([]model.Event, error) {
	customerID, err := g.newKey()
	if err != nil {
		return nil, err
	}
	joined := g.randomTime()
	events := []model.Event{{
		model.FieldType:      string(model.TypeCustomer),
		model.FieldVerb:      "NEW",
		model.FieldKey:       customerID,
		model.FieldEventTime: joined.Format(TimeLayout),
		"last_name":          lastNames[g.rng.Intn(len(lastNames))],
		"adr_city":           cities[g.rng.Intn(len(cities))],
		"adr_state":          "AK",
	}}

	visits := g.rng.Intn(g.cfg.MaxVisits + 1)
	for v := 0; v < visits; v++ {
		key, err := g.newKey()
		if err != nil {
			return nil, err
		}
		events = append(events, model.Event{
			model.FieldType:       string(model.TypeSiteVisit),
			model.FieldVerb:       "NEW",
			model.FieldKey:        key,
			model.FieldEventTime:  g.randomTime().Format(TimeLayout),
			model.FieldCustomerID: customerID,
			"tags":                []any{map[string]any{"page": "home"}},
		})
	}

	orders := 1 + g.rng.Intn(g.cfg.MaxOrders)
	for o := 0; o < orders; o++ {
		key, err := g.newKey()
		if err != nil {
			return nil, err
		}
		placed := g.randomTime()
		events = append(events, g.order(key, customerID, "NEW", placed))
		if g.rng.Float64() < g.cfg.UpdateRatio {
			later := placed.Add(time.Duration(1+g.rng.Intn(updateDelayMaxHours)) * time.Hour)
			events = append(events, g.order(key, customerID, "UPDATE", later))
		}
	}

	if g.rng.Float64() < g.cfg.ImageRatio {
		key, err := g.newKey()
		if err != nil {
			return nil, err
		}
		events = append(events, model.Event{
			model.FieldType:       "IMAGE",
			model.FieldVerb:       "UPLOAD",
			model.FieldKey:        key,
			model.FieldEventTime:  joined.Add(customerLeadTimeHour * time.Hour).Format(TimeLayout),
			model.FieldCustomerID: customerID,
			"camera_make":         "Canon",
		})
	}
	return events, nil
}

func (g *generator) order(key, customerID, verb string, at time.Time) model.Event {
	cents := minOrderCents + g.rng.Intn(maxOrderCents-minOrderCents)
	return model.Event{
		model.FieldType:        string(model.TypeOrder),
		model.FieldVerb:        verb,
		model.FieldKey:         key,
		model.FieldEventTime:   at.Format(TimeLayout),
		model.FieldCustomerID:  customerID,
		model.FieldTotalAmount: fmt.Sprintf("%d.%02d USD", cents/centsPerDollar, cents%centsPerDollar),
	}
}

// randomTime picks a microsecond-precision instant within the configured weeks.
func (g *generator) randomTime() time.Time {
	span := int64(g.cfg.Weeks) * hoursPerWeek * secondsPerHour * microsecondsPerSec
	return g.cfg.Start.Add(time.Duration(g.rng.Int63n(span)) * time.Microsecond)
}

func (g *generator) newKey() (string, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return id.String(), nil
}
