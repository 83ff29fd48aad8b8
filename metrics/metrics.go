// Package metrics records sort costs as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lanrat/emsort"
	"github.com/lanrat/emsort/blockstore"
)

// Recorder is the Prometheus implementation of emsort.Recorder.
// A nil *Recorder records nothing.
type Recorder struct {
	blockIO      *prometheus.CounterVec
	sorts        *prometheus.CounterVec
	sortDuration *prometheus.HistogramVec
	trialIO      *prometheus.GaugeVec
	bestArity    *prometheus.GaugeVec
	bestIO       *prometheus.GaugeVec
}

var _ emsort.Recorder = (*Recorder)(nil)

// New registers the emsort metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		blockIO: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "emsort_block_io_total",
				Help: "Total block transfers of completed sorts by mode and operation",
			},
			[]string{"mode", "op"}, // "read", "write"
		),
		sorts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "emsort_sorts_total",
				Help: "Total completed sorts by mode and arity",
			},
			[]string{"mode", "arity"},
		),
		sortDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emsort_sort_duration_seconds",
				Help:    "Wall time of completed sorts by mode",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"mode"},
		),
		trialIO: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "emsort_arity_trial_io",
				Help: "Total I/O measured for an arity during the last search",
			},
			[]string{"mode", "arity"},
		),
		bestArity: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "emsort_best_arity",
				Help: "Arity with the lowest total I/O found by the last search",
			},
			[]string{"mode"},
		),
		bestIO: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "emsort_best_arity_io",
				Help: "Total I/O of the best arity found by the last search",
			},
			[]string{"mode"},
		),
	}
}

// ObserveSort records one completed sort
func (r *Recorder) ObserveSort(mode emsort.Mode, arity int, stats blockstore.Stats, d time.Duration) {
	if r == nil {
		return
	}
	m := mode.String()
	r.blockIO.WithLabelValues(m, "read").Add(float64(stats.Reads))
	r.blockIO.WithLabelValues(m, "write").Add(float64(stats.Writes))
	r.sorts.WithLabelValues(m, strconv.Itoa(arity)).Inc()
	r.sortDuration.WithLabelValues(m).Observe(d.Seconds())
}

// ObserveTrial records the total I/O of one arity trial
func (r *Recorder) ObserveTrial(mode emsort.Mode, arity int, totalIO int64) {
	if r == nil {
		return
	}
	r.trialIO.WithLabelValues(mode.String(), strconv.Itoa(arity)).Set(float64(totalIO))
}

// ObserveBestArity records the result of an arity search
func (r *Recorder) ObserveBestArity(mode emsort.Mode, arity int, totalIO int64) {
	if r == nil {
		return
	}
	r.bestArity.WithLabelValues(mode.String()).Set(float64(arity))
	r.bestIO.WithLabelValues(mode.String()).Set(float64(totalIO))
}
