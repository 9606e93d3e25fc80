package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.observersActive.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_observers_active"], ShouldBeTrue)
			})
		})

		Convey("When an empty option value is passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithPrometheusRegistry(registry))

			Convey("Then the default namespace is kept", func() {
				So(manager.namespace, ShouldEqual, "proctor")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording detector ticks", func() {
			before := testutil.ToFloat64(globalManager.detectorTicks.WithLabelValues("ai_face_agent"))
			RecordDetectorTick("ai_face_agent", 4)
			RecordDetectorTickError("ai_face_agent")

			Convey("Then the counters advance", func() {
				So(testutil.ToFloat64(globalManager.detectorTicks.WithLabelValues("ai_face_agent")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.detectorTickErrors.WithLabelValues("ai_face_agent")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording a status transition to the same status", func() {
			before := testutil.ToFloat64(globalManager.subjectTransitions.WithLabelValues("flagged", "flagged"))
			RecordSubjectTransition("flagged", "flagged")

			Convey("Then nothing is counted", func() {
				So(testutil.ToFloat64(globalManager.subjectTransitions.WithLabelValues("flagged", "flagged")), ShouldEqual, before)
			})
		})

		Convey("When updating gauges", func() {
			UpdateMonitoringActive(true)
			UpdateSubjectGauges(8, 2)
			UpdateObserversActive(5)

			Convey("Then they reflect the latest values", func() {
				So(testutil.ToFloat64(globalManager.monitoringActive), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.activeSubjects), ShouldEqual, 8)
				So(testutil.ToFloat64(globalManager.flaggedSubjects), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.observersActive), ShouldEqual, 5)
			})

			UpdateMonitoringActive(false)
			So(testutil.ToFloat64(globalManager.monitoringActive), ShouldEqual, 0)
		})

		Convey("When recording the remaining collectors", func() {
			So(func() {
				RecordEventCreated("api", "high")
				RecordStoreOperation("update_subject", 0.2)
				RecordStoreError("create_event")
				RecordBroadcast("event")
				RecordObserverPruned()
				RecordObserverQueueDepth(3)
				RecordSubmissionDuplicate()
				RecordHTTPRequest("students", "GET", "200")
				RecordHTTPRequestDuration("students", "GET", "200", 1.5)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("Then the registry can be gathered", func() {
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
