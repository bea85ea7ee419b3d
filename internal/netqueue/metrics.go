package netqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	jobsEnqueued     prometheus.Counter
	jobsLeased       prometheus.Counter
	leasesExpired    prometheus.Counter
	resultsCollected prometheus.Counter
	resultsDuplicate prometheus.Counter
	pillsDelivered   prometheus.Counter
	jobsInFlight     prometheus.GaugeFunc
}

func newMetrics(reg prometheus.Registerer, inFlight func() float64) *metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "phredavg",
			Subsystem: "coordinator",
			Name:      name,
			Help:      help,
		})
	}
	return &metrics{
		jobsEnqueued:     counter("jobs_enqueued_total", "Jobs put on the job queue."),
		jobsLeased:       counter("jobs_leased_total", "Jobs handed to workers, including redeliveries."),
		leasesExpired:    counter("leases_expired_total", "Leases that expired and were requeued."),
		resultsCollected: counter("results_collected_total", "First results accepted for a job."),
		resultsDuplicate: counter("results_duplicate_total", "Results dropped because the job was already complete."),
		pillsDelivered:   counter("pills_delivered_total", "Poison pills handed to workers."),
		jobsInFlight: f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "phredavg",
			Subsystem: "coordinator",
			Name:      "jobs_in_flight",
			Help:      "Jobs currently leased to a worker.",
		}, inFlight),
	}
}
