package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			Convey("Then they should be valid functions", func() {
				So(WithNamespace("test-namespace"), ShouldNotBeNil)
				So(WithSubsystem("test-subsystem"), ShouldNotBeNil)
				So(WithHistogramBuckets([]float64{0.1, 0.5, 1.0}), ShouldNotBeNil)
				So(WithPrometheusRegistry(prometheus.NewRegistry()), ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should get its own registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(manager.Registry(), ShouldNotEqual, Default().Registry())
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordRecordsSuperseded(1)

			Convey("Then metrics should use the custom names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_records_superseded_total")
			})
		})

		Convey("When the global manager is used", func() {
			So(Default(), ShouldNotBeNil)
			So(Default().Registry(), ShouldEqual, customRegistry)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a fresh manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording ingested events", func() {
			m.RecordEventsIngested("ORDER", 3)
			m.RecordEventsIngested("ORDER", 2)
			m.RecordEventsIngested("CUSTOMER", 1)

			Convey("Then counts should accumulate per type", func() {
				So(testutil.ToFloat64(m.eventsIngested.WithLabelValues("ORDER")), ShouldEqual, 5)
				So(testutil.ToFloat64(m.eventsIngested.WithLabelValues("CUSTOMER")), ShouldEqual, 1)
			})
		})

		Convey("When updating the ranking gauges", func() {
			m.UpdateRanking(4, 10, 2)

			Convey("Then the gauges should hold the last values", func() {
				So(testutil.ToFloat64(m.weekWindow), ShouldEqual, 4)
				So(testutil.ToFloat64(m.customersScored), ShouldEqual, 10)
				So(testutil.ToFloat64(m.entriesReturned), ShouldEqual, 2)
			})
		})

		Convey("When a run succeeds", func() {
			at := time.Unix(1_700_000_000, 0)
			m.RecordSuccess(25*time.Millisecond, at)

			Convey("Then the success gauges should be set", func() {
				So(testutil.ToFloat64(m.lastSuccessUnix), ShouldEqual, 1_700_000_000)
				So(testutil.ToFloat64(m.lastRunSucceeded), ShouldEqual, 1)
			})
		})

		Convey("When a run fails", func() {
			m.RecordFailure("malformed_amount", time.Millisecond)
			m.RecordFailure("", time.Millisecond)

			Convey("Then the failure should be counted by kind", func() {
				So(testutil.ToFloat64(m.batchFailures.WithLabelValues("malformed_amount")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.batchFailures.WithLabelValues("other")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.lastRunSucceeded), ShouldEqual, 0)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a manager with data", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		m.RecordEventsIngested("ORDER", 2)
		dir := t.TempDir()

		Convey("When writing a textfile", func() {
			path := filepath.Join(dir, "ltv.prom")
			err := m.WriteTextfile(path)

			Convey("Then the file should contain the metrics", func() {
				So(err, ShouldBeNil)
				b, rerr := os.ReadFile(path)
				So(rerr, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `ltv_batch_events_ingested_total{type="ORDER"} 2`)
			})
		})

		Convey("When the directory does not exist", func() {
			err := m.WriteTextfile(filepath.Join(dir, "missing", "ltv.prom"))

			Convey("Then it should fail with a write error", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), ErrWriteMetrics.Error()), ShouldBeTrue)
			})
		})
	})
}
