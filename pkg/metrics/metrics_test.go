package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When a manager is built with custom options", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "unit")
				So(m.histogramBuckets, ShouldResemble, []float64{0.1, 1})
				So(m.constLabels["env"], ShouldEqual, "test")
			})

			Convey("Then collectors are registered on the given registry", func() {
				m.recordsLoaded.Add(2)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_records_loaded_total")
			})
		})

		Convey("When empty values are passed", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "swingstat")
				So(m.subsystem, ShouldEqual, "pipeline")
				So(len(m.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestRecordFunctions(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When ingest counters are recorded", func() {
			loaded := testutil.ToFloat64(globalManager.recordsLoaded)
			swings := testutil.ToFloat64(globalManager.swingsDetected)
			rejected := testutil.ToFloat64(globalManager.exitVelocityRejected)

			RecordRecordsLoaded(5)
			RecordSwings(3)
			RecordRejectedExitVelocities(1)
			RecordSwings(0)
			RecordSwings(-4)

			Convey("Then counters advance by positive amounts only", func() {
				So(testutil.ToFloat64(globalManager.recordsLoaded)-loaded, ShouldEqual, 5.0)
				So(testutil.ToFloat64(globalManager.swingsDetected)-swings, ShouldEqual, 3.0)
				So(testutil.ToFloat64(globalManager.exitVelocityRejected)-rejected, ShouldEqual, 1.0)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateWorkerCount(4)
			UpdateBattersSummarized(7)
			UpdateRowsAttached(120)
			UpdateInputBytes(2048)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4.0)
				So(testutil.ToFloat64(globalManager.battersSummarized), ShouldEqual, 7.0)
				So(testutil.ToFloat64(globalManager.rowsAttached), ShouldEqual, 120.0)
				So(testutil.ToFloat64(globalManager.inputBytes), ShouldEqual, 2048.0)
			})
		})

		Convey("When stage outcomes are recorded", func() {
			before := testutil.ToFloat64(globalManager.stageErrors.WithLabelValues("ingest", "malformed_input"))
			RecordStage("ingest", nil, 0.2)
			RecordStage("ingest", errors.New("boom"), 0.1)
			RecordStageError("ingest", "malformed_input")

			Convey("Then the error counter and histogram series exist", func() {
				So(testutil.ToFloat64(globalManager.stageErrors.WithLabelValues("ingest", "malformed_input"))-before, ShouldEqual, 1.0)
				So(testutil.CollectAndCount(globalManager.stageDuration), ShouldBeGreaterThanOrEqualTo, 2)
				So(testutil.ToFloat64(globalManager.lastSuccess.WithLabelValues("ingest")), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestPush(t *testing.T) {
	Convey("Given a pushgateway URL", t, func() {
		Convey("When it is empty", func() {
			err := Push("  ", "job")

			Convey("Then push fails without a network call", func() {
				So(errors.Is(err, ErrPushFailed), ShouldBeTrue)
			})
		})
	})
}

func TestInitAndGroupedPush(t *testing.T) {
	Convey("Given the global manager rebuilt for the ingest command", t, func() {
		Init(WithSubsystem("ingest"))
		defer Init()

		RecordRecordsLoaded(3)

		Convey("Then metric names carry the command subsystem", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "swingstat_ingest_records_loaded_total")
			So(testutil.ToFloat64(globalManager.recordsLoaded), ShouldEqual, 3.0)
		})

		Convey("When the registry is pushed", func() {
			var method, path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			err := Push(srv.URL, "nightly")

			Convey("Then it replaces only the command's group under the job", func() {
				So(err, ShouldBeNil)
				So(method, ShouldEqual, http.MethodPut)
				So(path, ShouldEqual, "/metrics/job/nightly/command/ingest")
			})
		})

		Convey("When the gateway rejects the push", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			So(errors.Is(Push(srv.URL, "nightly"), ErrPushFailed), ShouldBeTrue)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		So(GetRegistry(), ShouldNotBeNil)
		So(GetRegistry(), ShouldEqual, customRegistry)
	})
}
