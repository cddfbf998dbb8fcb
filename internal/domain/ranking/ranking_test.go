package ranking_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/ltvrank/internal/domain/model"
	"github.com/okian/ltvrank/internal/domain/normalize"
	"github.com/okian/ltvrank/internal/domain/ranking"
	"github.com/okian/ltvrank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func workedExample() []model.Event {
	return []model.Event{
		{"type": "CUSTOMER", "verb": "NEW", "key": "C1", "event_time": "2017-01-06T12:34:56.123000+00:00", "last_name": "Smith"},
		{"type": "ORDER", "verb": "NEW", "key": "O1", "event_time": "2017-01-06T12:55:55.555000+00:00", "customer_id": "C1", "total_amount": "100 USD"},
		{"type": "ORDER", "verb": "NEW", "key": "O2", "event_time": "2017-01-13T12:55:55.555000+00:00", "customer_id": "C1", "total_amount": "50 USD"},
		{"type": "SITE_VISIT", "verb": "NEW", "key": "V1", "event_time": "2017-01-06T12:45:52.041000+00:00", "customer_id": "C1"},
		{"type": "SITE_VISIT", "verb": "NEW", "key": "V2", "event_time": "2017-01-07T12:45:52.041000+00:00", "customer_id": "C1"},
		{"type": "SITE_VISIT", "verb": "NEW", "key": "V3", "event_time": "2017-01-08T12:45:52.041000+00:00", "customer_id": "C1"},
	}
}

func normalized(events []model.Event) []model.Record {
	records, err := normalize.NormalizeAll(context.Background(), events, nil)
	if err != nil {
		panic(err)
	}
	return records
}

func TestTopLTV(t *testing.T) {
	ctx := context.Background()

	Convey("Given the worked example", t, func() {
		records := normalized(workedExample())

		Convey("When asking for the top customer", func() {
			entries, err := ranking.TopLTV(ctx, 1, records)

			Convey("Then C1 should score 1125", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldResemble, []model.LTVEntry{{CustomerID: "C1", LTV: 1125}})
				b, _ := json.Marshal(entries)
				So(string(b), ShouldEqual, `[{"customer_id":"C1","ltv":1125.0}]`)
			})
		})

		Convey("When the ranker reports intermediate figures", func() {
			res, err := ranking.New().Rank(ctx, 5, records)

			Convey("Then the window and counts should match", func() {
				So(err, ShouldBeNil)
				So(res.Weeks, ShouldEqual, 2)
				So(res.Retained, ShouldEqual, 6)
				So(res.Customers, ShouldEqual, 1)
				So(len(res.Entries), ShouldEqual, 1)
			})
		})

		Convey("When asking for zero customers", func() {
			entries, err := ranking.TopLTV(ctx, 0, records)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
			So(entries, ShouldNotBeNil)
		})

		Convey("When an order is updated", func() {
			events := append(workedExample(), model.Event{
				"type": "ORDER", "verb": "UPDATE", "key": "O2", "event_time": "2017-01-14T12:55:55.555000+00:00",
				"customer_id": "C1", "total_amount": "250 USD",
			})

			Convey("Then only the latest version should count", func() {
				entries, err := ranking.TopLTV(ctx, 1, normalized(events))
				So(err, ShouldBeNil)
				// (350/2) * (3/2) * 10
				So(float64(entries[0].LTV), ShouldEqual, 2625.0)
			})

			Convey("Then input order should not matter", func() {
				reversed := make([]model.Event, len(events))
				for i := range events {
					reversed[len(events)-1-i] = events[i]
				}
				entries, err := ranking.TopLTV(ctx, 1, normalized(reversed))
				So(err, ShouldBeNil)
				So(float64(entries[0].LTV), ShouldEqual, 2625.0)
			})
		})

		Convey("When a site visit carries no key", func() {
			events := append(workedExample(), model.Event{
				"type": "SITE_VISIT", "event_time": "2017-01-08T12:45:52.041000+00:00", "customer_id": "C1",
			})
			_, err := ranking.TopLTV(ctx, 1, normalized(events))

			Convey("Then the batch should fail", func() {
				So(errors.Is(err, model.ErrMissingKey), ShouldBeTrue)
			})
		})

		Convey("When an order total is malformed", func() {
			events := append(workedExample(), model.Event{
				"type": "ORDER", "key": "O3", "event_time": "2017-01-08T12:45:52.041000+00:00",
				"customer_id": "C1", "total_amount": "many USD",
			})
			entries, err := ranking.TopLTV(ctx, 1, normalized(events))

			Convey("Then the batch should fail without output", func() {
				So(errors.Is(err, model.ErrMalformedAmount), ShouldBeTrue)
				So(entries, ShouldBeNil)
			})
		})
	})

	Convey("Given a batch without orders", t, func() {
		records := normalized([]model.Event{
			{"type": "CUSTOMER", "key": "C1", "event_time": "2017-01-06T12:34:56.123000+00:00"},
		})
		_, err := ranking.TopLTV(ctx, 1, records)

		Convey("Then it should fail with no orders", func() {
			So(errors.Is(err, model.ErrNoOrders), ShouldBeTrue)
		})
	})

	Convey("Given orders and visits for unregistered customers", t, func() {
		records := normalized([]model.Event{
			{"type": "ORDER", "key": "O1", "event_time": "2017-01-06T12:00:00.000000+00:00", "customer_id": "GHOST", "total_amount": "10 USD"},
			{"type": "SITE_VISIT", "key": "V1", "event_time": "2017-01-06T12:00:00.000000+00:00", "customer_id": "GHOST"},
		})
		entries, err := ranking.TopLTV(ctx, 3, records)

		Convey("Then no entry should be reported", func() {
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})
}

func TestRankingOrder(t *testing.T) {
	ctx := context.Background()

	Convey("Given several customers", t, func() {
		var events []model.Event
		for i := 1; i <= 5; i++ {
			cid := fmt.Sprintf("C%d", i)
			events = append(events,
				model.Event{"type": "CUSTOMER", "key": cid, "event_time": "2017-01-02T00:00:00.000000+00:00"},
				model.Event{"type": "ORDER", "key": "O" + cid, "event_time": "2017-01-03T00:00:00.000000+00:00", "customer_id": cid, "total_amount": fmt.Sprintf("%d USD", 10*(i%3+1))},
				model.Event{"type": "SITE_VISIT", "key": "V" + cid, "event_time": "2017-01-03T00:00:00.000000+00:00", "customer_id": cid},
			)
		}
		records := normalized(events)

		Convey("When ranking more than exist", func() {
			entries, err := ranking.TopLTV(ctx, 10, records)

			Convey("Then all customers should be returned sorted descending", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 5)
				for i := 1; i < len(entries); i++ {
					So(float64(entries[i-1].LTV), ShouldBeGreaterThanOrEqualTo, float64(entries[i].LTV))
				}
			})

			Convey("Then ties should keep customer collection order", func() {
				// C2 and C5 score 300, C1 and C4 score 200, C3 scores 100.
				ids := make([]string, len(entries))
				for i, e := range entries {
					ids[i] = e.CustomerID
				}
				So(ids, ShouldResemble, []string{"C2", "C5", "C1", "C4", "C3"})
			})
		})

		Convey("When ranking fewer than exist", func() {
			entries, err := ranking.TopLTV(ctx, 2, records)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
		})

		Convey("When running twice", func() {
			first, err1 := ranking.TopLTV(ctx, 5, records)
			second, err2 := ranking.TopLTV(ctx, 5, normalized(events))
			b1, _ := json.Marshal(first)
			b2, _ := json.Marshal(second)

			Convey("Then output should be byte identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(string(b1), ShouldEqual, string(b2))
			})
		})

		Convey("When a custom scorer is used", func() {
			r := ranking.New(ranking.WithScorer(scoring.NewLTVScorer(scoring.WithMultiplier(1))))
			res, err := r.Rank(ctx, 1, records)
			So(err, ShouldBeNil)
			So(float64(res.Entries[0].LTV), ShouldEqual, 30.0)
		})
	})
}

func TestTop(t *testing.T) {
	Convey("Given scored entries", t, func() {
		in := []model.LTVEntry{{CustomerID: "a", LTV: 1}, {CustomerID: "b", LTV: 3}, {CustomerID: "c", LTV: 1}}

		Convey("Then Top should sort stably without touching the input", func() {
			out := ranking.Top(in, 3)
			So(out, ShouldResemble, []model.LTVEntry{{CustomerID: "b", LTV: 3}, {CustomerID: "a", LTV: 1}, {CustomerID: "c", LTV: 1}})
			So(in[0].CustomerID, ShouldEqual, "a")
		})

		Convey("Then a negative count should yield nothing", func() {
			So(ranking.Top(in, -1), ShouldBeEmpty)
		})
	})
}
