// Package profiler - Rolling stage timings and metrics for the live detection loop.
package profiler

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/cam-detector/logging"
)

// Stage names recorded by the detection loop.
const (
	StagePreprocess  = "preprocess"
	StageInference   = "inference"
	StagePostprocess = "postprocess"
	StageFrame       = "frame"
)

// TimeTracker keeps a bounded window of durations for one operation.
type TimeTracker struct {
	durations []time.Duration
	total     time.Duration
	count     int64
}

// TimingSummary describes a tracker's window.
type TimingSummary struct {
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P95   time.Duration `json:"p95"`
	Count int64         `json:"count"`
}

// MetricSummary describes a metric's window.
type MetricSummary struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Snapshot is a point-in-time copy of every tracker.
type Snapshot struct {
	Uptime     time.Duration            `json:"uptime"`
	Operations map[string]TimingSummary `json:"operations"`
	Metrics    map[string]MetricSummary `json:"metrics"`
}

type metricTracker struct {
	values []float64
	count  int64
}

// Options configures the profiler.
type Options struct {
	// ReportInterval specifies how often Run emits a report (default: 5s).
	ReportInterval time.Duration
	// MaxSamples bounds each tracker's window (default: 300).
	MaxSamples int
}

// Profiler records per-stage timings and scalar metrics over a sliding window.
//
// It is safe for concurrent use.
type Profiler struct {
	opts      Options
	startTime time.Time
	now       func() time.Time

	mu         sync.Mutex
	operations map[string]*TimeTracker
	metrics    map[string]*metricTracker
}

// New creates a profiler with the specified options.
//
// Arguments:
//   - opts: Zero fields take their defaults.
//
// Returns:
//   - *Profiler: An empty profiler.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 5 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 300
	}
	return &Profiler{
		opts:       opts,
		startTime:  time.Now(),
		now:        time.Now,
		operations: make(map[string]*TimeTracker),
		metrics:    make(map[string]*metricTracker),
	}
}

// StartOperation begins timing an operation.
//
// Returns:
//   - func(): Call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := p.now()
	return func() {
		p.RecordDuration(name, p.now().Sub(start))
	}
}

// RecordDuration records one completed operation.
func (p *Profiler) RecordDuration(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operations[name]
	if !ok {
		t = &TimeTracker{durations: make([]time.Duration, 0, p.opts.MaxSamples)}
		p.operations[name] = t
	}

	t.durations = append(t.durations, d)
	t.total += d
	if len(t.durations) > p.opts.MaxSamples {
		t.total -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
}

// RecordMetric records a custom metric value.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.metrics[name]
	if !ok {
		m = &metricTracker{values: make([]float64, 0, p.opts.MaxSamples)}
		p.metrics[name] = m
	}

	m.values = append(m.values, value)
	if len(m.values) > p.opts.MaxSamples {
		m.values = m.values[1:]
	}
	m.count++
}

// Snapshot summarises the current windows.
func (p *Profiler) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Uptime:     p.now().Sub(p.startTime),
		Operations: make(map[string]TimingSummary, len(p.operations)),
		Metrics:    make(map[string]MetricSummary, len(p.metrics)),
	}

	for name, t := range p.operations {
		if len(t.durations) == 0 {
			continue
		}
		sorted := append([]time.Duration(nil), t.durations...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		s.Operations[name] = TimingSummary{
			Avg:   t.total / time.Duration(len(t.durations)),
			Min:   sorted[0],
			Max:   sorted[len(sorted)-1],
			P95:   sorted[percentileIndex(len(sorted), 0.95)],
			Count: t.count,
		}
	}

	for name, m := range p.metrics {
		if len(m.values) == 0 {
			continue
		}
		sum := MetricSummary{Min: m.values[0], Max: m.values[0], Count: m.count}
		var total float64
		for _, v := range m.values {
			total += v
			sum.Min = min(sum.Min, v)
			sum.Max = max(sum.Max, v)
		}
		sum.Avg = total / float64(len(m.values))
		s.Metrics[name] = sum
	}

	return s
}

// Report logs the current snapshot, one line per operation and metric.
func (p *Profiler) Report(log logrus.FieldLogger) {
	log = logging.OrDiscard(log)
	s := p.Snapshot()

	for _, name := range sortedKeys(s.Operations) {
		t := s.Operations[name]
		log.WithFields(logrus.Fields{
			"op":    name,
			"avg":   t.Avg.Truncate(time.Microsecond),
			"min":   t.Min.Truncate(time.Microsecond),
			"max":   t.Max.Truncate(time.Microsecond),
			"p95":   t.P95.Truncate(time.Microsecond),
			"count": t.Count,
		}).Info("timing")
	}
	for _, name := range sortedKeys(s.Metrics) {
		m := s.Metrics[name]
		log.WithFields(logrus.Fields{
			"metric": name,
			"avg":    m.Avg,
			"min":    m.Min,
			"max":    m.Max,
		}).Info("metric")
	}
}

// Run reports every ReportInterval until ctx is done.
func (p *Profiler) Run(ctx context.Context, log logrus.FieldLogger) {
	ticker := time.NewTicker(p.opts.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Report(log)
		}
	}
}

// percentileIndex returns the nearest-rank index of q in a sorted window of n.
func percentileIndex(n int, q float64) int {
	i := int(math.Ceil(q*float64(n)-1e-9)) - 1
	return max(0, min(i, n-1))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
