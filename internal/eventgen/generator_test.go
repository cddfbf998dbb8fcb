package eventgen_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/internal/domain/normalize"
	"github.com/okian/ltvrank/internal/domain/ranking"
	"github.com/okian/ltvrank/internal/domain/window"
	"github.com/okian/ltvrank/internal/eventgen"
	. "github.com/smartystreets/goconvey/convey"
)

func smallConfig() eventgen.Config {
	cfg := eventgen.DefaultConfig()
	cfg.Customers = 12
	cfg.UpdateRatio = 0.5
	cfg.ImageRatio = 0.5
	return cfg
}

func TestGenerate(t *testing.T) {
	Convey("Given a small generator config", t, func() {
		ctx := context.Background()
		cfg := smallConfig()

		Convey("When generating twice with the same seed", func() {
			a, errA := eventgen.Generate(ctx, cfg)
			b, errB := eventgen.Generate(ctx, cfg)

			Convey("Then both batches are identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When changing the seed", func() {
			a, _ := eventgen.Generate(ctx, cfg)
			cfg.Seed++
			b, err := eventgen.Generate(ctx, cfg)

			Convey("Then the batch differs", func() {
				So(err, ShouldBeNil)
				So(a, ShouldNotResemble, b)
			})
		})

		Convey("When inspecting the generated events", func() {
			events, err := eventgen.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			customers := 0
			for _, ev := range events {
				ts, ok := ev[model.FieldEventTime].(string)
				So(ok, ShouldBeTrue)
				_, perr := window.ParseEventTime(ts)
				So(perr, ShouldBeNil)

				switch ev[model.FieldType] {
				case string(model.TypeCustomer):
					customers++
				case string(model.TypeOrder):
					amount, _ := ev[model.FieldTotalAmount].(string)
					So(strings.HasSuffix(amount, " USD"), ShouldBeTrue)
				}
			}

			Convey("Then every customer is registered once and timestamps parse", func() {
				So(customers, ShouldEqual, cfg.Customers)
			})
		})

		Convey("When the batch is ranked", func() {
			events, err := eventgen.Generate(ctx, cfg)
			So(err, ShouldBeNil)
			records, err := normalize.NormalizeAll(ctx, events, nil)
			So(err, ShouldBeNil)

			top, err := ranking.TopLTV(ctx, 5, records)

			Convey("Then a full top list comes back in descending order", func() {
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 5)
				for i := 1; i < len(top); i++ {
					So(float64(top[i-1].LTV), ShouldBeGreaterThanOrEqualTo, float64(top[i].LTV))
				}
			})
		})
	})
}

func TestGenerateErrors(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		ctx := context.Background()
		cases := []func(*eventgen.Config){
			func(c *eventgen.Config) { c.Customers = -1 },
			func(c *eventgen.Config) { c.Weeks = 0 },
			func(c *eventgen.Config) { c.MaxOrders = 0 },
			func(c *eventgen.Config) { c.MaxVisits = -1 },
			func(c *eventgen.Config) { c.UpdateRatio = 1.5 },
			func(c *eventgen.Config) { c.ImageRatio = -0.1 },
		}

		Convey("Then each is rejected", func() {
			for _, mutate := range cases {
				cfg := eventgen.DefaultConfig()
				mutate(&cfg)
				_, err := eventgen.Generate(ctx, cfg)
				So(errors.Is(err, eventgen.ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := eventgen.Generate(ctx, eventgen.DefaultConfig())

		Convey("Then generation stops", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given zero customers", t, func() {
		cfg := eventgen.DefaultConfig()
		cfg.Customers = 0

		events, err := eventgen.Generate(context.Background(), cfg)

		Convey("Then the batch is empty", func() {
			So(err, ShouldBeNil)
			So(events, ShouldBeEmpty)
		})
	})
}
