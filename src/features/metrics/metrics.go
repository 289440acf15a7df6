package metrics

import (
	"time"

	"github.com/contre95/mailwatch/src/features/watching"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "mailwatch"

// Collector turns watch loop events into Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry
	now      func() time.Time

	scans        prometheus.Counter
	detected     prometheus.Counter
	dispatches   *prometheus.CounterVec
	files        *prometheus.CounterVec
	state        *prometheus.GaugeVec
	progress     prometheus.Gauge
	lastDispatch prometheus.Gauge
}

// NewCollector creates a collector with its own registry. Go runtime and process
// collectors are registered next to the watch metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		now:      time.Now,
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed directory scans.",
		}),
		detected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_detected_total",
			Help:      "New files found by scans.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Notification attempts by result.",
		}, []string{"result"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_files_total",
			Help:      "Files handed to the dispatcher by result.",
		}, []string{"result"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_state",
			Help:      "1 for the current state of the watch loop.",
		}, []string{"state"}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_progress_percent",
			Help:      "Elapsed share of the current scan interval.",
		}),
		lastDispatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_dispatch_timestamp_seconds",
			Help:      "Unix time of the last successful dispatch.",
		}),
	}
	c.registry.MustRegister(
		c.scans, c.detected, c.dispatches, c.files, c.state, c.progress, c.lastDispatch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.ObserveState(watching.StateIdle)
	return c
}

// Registry returns the registry holding every metric of the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveScan(detected int) {
	c.scans.Inc()
	c.detected.Add(float64(detected))
}

func (c *Collector) ObserveDispatch(files int, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	} else {
		c.lastDispatch.Set(float64(c.now().Unix()))
	}
	c.dispatches.WithLabelValues(result).Inc()
	c.files.WithLabelValues(result).Add(float64(files))
}

func (c *Collector) ObserveState(state watching.RunState) {
	for _, s := range []watching.RunState{watching.StateIdle, watching.StateRunning, watching.StateStopping, watching.StateStopped} {
		v := 0.0
		if s == state {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}

// Report ignores status text; the collector is only a sink for progress.
func (c *Collector) Report(string) {}

func (c *Collector) ReportProgress(percent int) {
	c.progress.Set(float64(percent))
}
