// Package metrics records conversion outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeNonConformant = "nonconformant"
	OutcomeFailed        = "failed"
)

// Recorder holds the conversion metrics. A nil *Recorder records nothing.
type Recorder struct {
	conversions  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	transactions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pain001_conversions_total",
				Help: "Total number of conversions by message version and outcome.",
			},
			[]string{"version", "outcome"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pain001_conversion_errors_total",
				Help: "Total number of conversion errors by kind.",
			},
			[]string{"kind"},
		),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pain001_transactions_total",
				Help: "Total number of credit transfer transactions rendered.",
			},
			[]string{"version"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pain001_conversion_duration_seconds",
				Help:    "Time spent converting one input file.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"version"},
		),
	}

	for _, c := range []prometheus.Collector{r.conversions, r.errors, r.transactions, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Conversion records one finished conversion.
func (r *Recorder) Conversion(version, outcome string, transactions int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if version == "" {
		version = "unknown"
	}
	r.conversions.WithLabelValues(version, outcome).Inc()
	r.duration.WithLabelValues(version).Observe(elapsed.Seconds())
	if transactions > 0 {
		r.transactions.WithLabelValues(version).Add(float64(transactions))
	}
}

// Error records an error of the given kind.
func (r *Recorder) Error(kind string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(kind).Inc()
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
