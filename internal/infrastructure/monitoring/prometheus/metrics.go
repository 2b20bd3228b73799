package prometheus

import (
	"time"
)

// BuildMetrics holds the dataset pipeline metrics.
type BuildMetrics struct {
	RecordsTotal     CounterVec
	RejectionsTotal  CounterVec
	BuildDuration    HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	DatasetExamples  GaugeVec
	SplitSize        GaugeVec
	CuratedTotal     CounterVec
}

var DefaultBuildDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600}

// Outcome label values of RecordsTotal.
const (
	OutcomeKept     = "kept"
	OutcomeRejected = "rejected"
)

// NewBuildMetrics registers the pipeline metrics on collector.
func NewBuildMetrics(collector MetricsCollector) *BuildMetrics {
	m := &BuildMetrics{}
	m.RecordsTotal = collector.RegisterCounter("records_total", "Raw records processed by outcome", "outcome")
	m.RejectionsTotal = collector.RegisterCounter("rejections_total", "Rejected records by reason", "reason")
	m.BuildDuration = collector.RegisterHistogram("build_duration_seconds", "Dataset build duration", DefaultBuildDurationBuckets, "nucleus", "cache")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Processed dataset cache hits", "store")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Processed dataset cache misses", "store")
	m.DatasetExamples = collector.RegisterGauge("dataset_examples", "Labelled examples in the last built dataset", "nucleus")
	m.SplitSize = collector.RegisterGauge("split_size", "Examples per split partition", "partition")
	m.CuratedTotal = collector.RegisterCounter("curated_records_total", "Records seen by curation by outcome", "outcome")
	return m
}

func (m *BuildMetrics) RecordOutcome(kept bool) {
	if kept {
		m.RecordsTotal.WithLabelValues(OutcomeKept).Inc()
		return
	}
	m.RecordsTotal.WithLabelValues(OutcomeRejected).Inc()
}

func (m *BuildMetrics) RecordRejection(reason string) {
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *BuildMetrics) RecordCacheAccess(store string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(store).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(store).Inc()
	}
}

func (m *BuildMetrics) ObserveBuild(nucleus string, cacheHit bool, d time.Duration, examples int) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.BuildDuration.WithLabelValues(nucleus, cache).Observe(d.Seconds())
	m.DatasetExamples.WithLabelValues(nucleus).Set(float64(examples))
}

func (m *BuildMetrics) RecordCurated(kept bool) {
	if kept {
		m.CuratedTotal.WithLabelValues(OutcomeKept).Inc()
		return
	}
	m.CuratedTotal.WithLabelValues(OutcomeRejected).Inc()
}

func (m *BuildMetrics) SetSplitSizes(train, val, test int) {
	m.SplitSize.WithLabelValues("train").Set(float64(train))
	m.SplitSize.WithLabelValues("val").Set(float64(val))
	m.SplitSize.WithLabelValues("test").Set(float64(test))
}
