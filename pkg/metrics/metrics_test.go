package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "verdict")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("scoring"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"site": "lab"}),
				WithPrometheusRegistry(registry),
			)
			manager.transitions.WithLabelValues("save", "ok").Inc()

			Convey("Then series use the configured names and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_scoring_transitions_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldNotBeEmpty)
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "verdict")
				So(manager.subsystem, ShouldEqual, "assessment")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestLifecycleMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording transitions and violations", func() {
			before := testutil.ToFloat64(globalManager.lifecycleViolations.WithLabelValues("save", "submitted"))
			RecordTransition("save", "violation")
			RecordLifecycleViolation("save", "submitted")

			Convey("Then the violation counter moves by one", func() {
				after := testutil.ToFloat64(globalManager.lifecycleViolations.WithLabelValues("save", "submitted"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording findings", func() {
			before := testutil.ToFloat64(globalManager.insightFindings.WithLabelValues("cautionary", "group"))
			RecordFindings("cautionary", "group", 3)
			RecordFindings("cautionary", "group", 0)

			Convey("Then zero counts are ignored", func() {
				after := testutil.ToFloat64(globalManager.insightFindings.WithLabelValues("cautionary", "group"))
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When the registry is gathered", func() {
			RecordBand("Strong")
			RecordStoreLatency("memory", "save_record", 1.5)
			RecordStoreError("sqlite", "load_record")

			Convey("Then domain series are exported", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "verdict_assessment_band_classifications_total")
				So(joined, ShouldContainSubstring, "verdict_assessment_store_latency_milliseconds")
				So(joined, ShouldContainSubstring, "verdict_assessment_store_errors_total")
			})
		})
	})
}

func TestMetricsRecordingDoesNotPanic(t *testing.T) {
	Convey("Given every package-level recorder", t, func() {
		So(func() {
			RecordAssignmentCreated()
			RecordEvaluationPreviewed()
			UpdateQueueSize(10)
			UpdateQueueCapacity(100)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueDrop("full")
			UpdateWorkerCount(2)
			RecordWorkerProcessingLatency(3)
			RecordWorkerError()
			RecordHTTPRequest("/assignments", "POST", "201")
			RecordHTTPRequestDuration("/assignments", "POST", "201", 4)
			RecordHTTPError("/assignments", "validation_error")
			RecordRateLimited()
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.3)
		}, ShouldNotPanic)
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordTransition("submit", "ok")
					RecordBand("Limited")
					UpdateQueueSize(j)
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.transitions.WithLabelValues("submit", "ok")), ShouldBeGreaterThanOrEqualTo, 1000)
	})
}
