package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsInitialized(t *testing.T) {
	Init()

	if SweepCycles == nil || VideosDiscovered == nil || NotificationsSent == nil {
		t.Error("counters not initialized")
	}
	if ChannelSweepDuration == nil || DownloadDuration == nil {
		t.Error("histograms not initialized")
	}
	if NewsQueueDepth == nil || ShortsQueueDepth == nil {
		t.Error("gauges not initialized")
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil || *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestQueueDepthGauges(t *testing.T) {
	Init()

	for _, depth := range []int{0, 10, 100} {
		SetNewsQueueDepth(depth)
		SetShortsQueueDepth(depth)
	}
}

func TestIncNilSafe(t *testing.T) {
	Inc(nil) // must not panic before Init
	Init()
	Inc(SweepCycles)
}
