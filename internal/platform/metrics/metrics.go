package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	SubmissionsProcessed prometheus.Counter
	SubmissionsFailed    prometheus.Counter
	AcquisitionFailures  prometheus.Counter
	AllocationChanges    prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerd_submissions_processed_total",
			Help: "Total number of submissions ingested successfully",
		}),
		SubmissionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerd_submissions_failed_total",
			Help: "Total number of submissions that failed ingestion",
		}),
		AcquisitionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerd_acquisition_failures_total",
			Help: "Total number of ID card image fetch or OCR failures",
		}),
		AllocationChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerd_allocation_changes_total",
			Help: "Total number of allocate/unallocate transitions",
		}),
	}
}

// IncrementSubmissionsProcessed increments the processed counter by 1.
func (m *Metrics) IncrementSubmissionsProcessed() {
	m.SubmissionsProcessed.Inc()
}

// IncrementSubmissionsFailed increments the failed counter by 1.
func (m *Metrics) IncrementSubmissionsFailed() {
	m.SubmissionsFailed.Inc()
}

// IncrementAcquisitionFailures increments the acquisition failure counter by 1.
func (m *Metrics) IncrementAcquisitionFailures() {
	m.AcquisitionFailures.Inc()
}

// IncrementAllocationChanges increments the allocation transition counter by 1.
func (m *Metrics) IncrementAllocationChanges() {
	m.AllocationChanges.Inc()
}
