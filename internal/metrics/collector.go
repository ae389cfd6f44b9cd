package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Collector collects transfer metrics on a private registry. A one-shot
// task cannot serve a scrape endpoint, so metrics are pushed to a
// Pushgateway when one is configured and dropped otherwise.
type Collector struct {
	registry      *prometheus.Registry
	objectsTotal  *prometheus.CounterVec
	bytesTotal    prometheus.Counter
	phaseDuration *prometheus.HistogramVec
	gateway       string
}

// New creates a new metrics collector. An empty gateway disables pushing.
func New(gateway string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		objectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eggo_transfer_objects_total",
				Help: "Total number of transfer records processed",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eggo_transfer_bytes_total",
				Help: "Total bytes fetched from source URLs",
			},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eggo_transfer_phase_duration_seconds",
				Help:    "Time spent in each transfer phase",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		gateway: gateway,
	}

	c.registry.MustRegister(c.objectsTotal)
	c.registry.MustRegister(c.bytesTotal)
	c.registry.MustRegister(c.phaseDuration)

	return c
}

// IncStatus increments the processed-records counter for a terminal status.
func (c *Collector) IncStatus(status string) {
	c.objectsTotal.WithLabelValues(status).Inc()
}

// AddBytes adds to total bytes fetched
func (c *Collector) AddBytes(bytes int64) {
	c.bytesTotal.Add(float64(bytes))
}

// ObservePhase observes the duration of one pipeline phase
func (c *Collector) ObservePhase(phase string, duration time.Duration) {
	c.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// Push pushes collected metrics to the configured Pushgateway under the
// given job name. It is a no-op when no gateway is configured.
func (c *Collector) Push(job string) error {
	if c.gateway == "" {
		return nil
	}

	return push.New(c.gateway, job).Gatherer(c.registry).Push()
}
