// Package metrics exposes coordinator state as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the geotify Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Geotifications   prometheus.Gauge
	MonitoredRegions prometheus.Gauge
	Operations       *prometheus.CounterVec
	Reports          *prometheus.CounterVec
	Syncs            *prometheus.CounterVec
}

// New registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	geotifications, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geotify_geotifications",
		Help: "Current number of geotifications in the live set.",
	}), "geotify_geotifications")
	if err != nil {
		return nil, err
	}
	monitored, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geotify_monitored_regions",
		Help: "Current number of active region subscriptions.",
	}), "geotify_monitored_regions")
	if err != nil {
		return nil, err
	}
	operations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geotify_operations_total",
		Help: "Coordinator operations, labeled by operation and result.",
	}, []string{"operation", "result"}), "geotify_operations_total")
	if err != nil {
		return nil, err
	}
	reports, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geotify_monitoring_reports_total",
		Help: "Monitoring conditions reported to the user, labeled by kind.",
	}, []string{"kind"}), "geotify_monitoring_reports_total")
	if err != nil {
		return nil, err
	}

	syncs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geotify_backup_syncs_total",
		Help: "Backup sync attempts, labeled by destination and result.",
	}, []string{"destination", "result"}), "geotify_backup_syncs_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Geotifications:   geotifications,
		MonitoredRegions: monitored,
		Operations:       operations,
		Reports:          reports,
		Syncs:            syncs,
	}, nil
}

// SetCounts updates the live-set and subscription gauges.
func (c *Collector) SetCounts(geotifications, monitored int) {
	if c == nil {
		return
	}
	c.Geotifications.Set(float64(geotifications))
	c.MonitoredRegions.Set(float64(monitored))
}

// RecordOperation counts one coordinator operation; result is "ok" when err
// is nil and "error" otherwise.
func (c *Collector) RecordOperation(operation string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Operations.WithLabelValues(operation, result).Inc()
}

// RecordReport counts one reported monitoring condition.
func (c *Collector) RecordReport(kind string) {
	if c == nil {
		return
	}
	c.Reports.WithLabelValues(kind).Inc()
}

// RecordSync counts one backup sync attempt for destination.
func (c *Collector) RecordSync(destination, result string) {
	if c == nil {
		return
	}
	c.Syncs.WithLabelValues(destination, result).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
