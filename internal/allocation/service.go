// Package allocation owns allocation-state transitions and the query
// surface over reconciled records: listing, category filtering, and
// confidence-thresholded candidate selection.
package allocation

import (
	"context"
	"errors"
	"log/slog"

	"volunteerd/internal/platform/metrics"
	"volunteerd/internal/score"
	"volunteerd/internal/student/models"
	pkgerrors "volunteerd/pkg/domain-errors"
	"volunteerd/pkg/platform/sentinel"
)

// Store is the slice of the record store this service needs.
type Store interface {
	Get(ctx context.Context, email string) (*models.StudentRecord, error)
	GetAll(ctx context.Context) ([]*models.StudentRecord, error)
	GetByCategory(ctx context.Context, category string) ([]*models.StudentRecord, error)
	GetUnallocated(ctx context.Context, category string) ([]*models.StudentRecord, error)
	SetAllocation(ctx context.Context, email string, alloc models.Allocation) error
}

// DefaultMinConfidence is the candidate threshold used when the caller
// supplies none.
const DefaultMinConfidence = 0.8

// Service mediates allocation transitions and queries. Scoring weights are
// injected so thresholds can be tuned through configuration.
type Service struct {
	store         Store
	weights       score.Weights
	minConfidence float64
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithMinConfidence overrides the fallback candidate threshold applied
// when a query supplies none.
func WithMinConfidence(v float64) Option {
	return func(s *Service) {
		s.minConfidence = v
	}
}

// NewService creates an allocation Service.
func NewService(store Store, weights score.Weights, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		store:         store,
		weights:       weights,
		minConfidence: DefaultMinConfidence,
		logger:        logger,
		metrics:       m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate marks the record as allocated to event. Re-allocating an
// already-allocated record overwrites the event name.
func (s *Service) Allocate(ctx context.Context, email, event string) error {
	if event == "" {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "event name must not be empty")
	}
	if err := s.store.SetAllocation(ctx, email, models.AllocatedTo(event)); err != nil {
		return s.translateStoreErr(err, email)
	}
	s.metrics.IncrementAllocationChanges()
	s.logger.InfoContext(ctx, "student allocated", "email", email, "event", event)
	return nil
}

// Unallocate returns the record to the unallocated state. Unallocating an
// already-unallocated record is a no-op, not an error.
func (s *Service) Unallocate(ctx context.Context, email string) error {
	if err := s.store.SetAllocation(ctx, email, models.Unallocated()); err != nil {
		return s.translateStoreErr(err, email)
	}
	s.metrics.IncrementAllocationChanges()
	s.logger.InfoContext(ctx, "student unallocated", "email", email)
	return nil
}

// All returns every record.
func (s *Service) All(ctx context.Context) ([]*models.StudentRecord, error) {
	recs, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list students")
	}
	return recs, nil
}

// ByCategory returns records whose category string contains category.
func (s *Service) ByCategory(ctx context.Context, category string) ([]*models.StudentRecord, error) {
	recs, err := s.store.GetByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list students by category")
	}
	return recs, nil
}

// Unallocated returns unallocated records, optionally filtered by category
// (empty category means no filter).
func (s *Service) Unallocated(ctx context.Context, category string) ([]*models.StudentRecord, error) {
	recs, err := s.store.GetUnallocated(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list unallocated students")
	}
	return recs, nil
}

// Candidate pairs a record with its computed confidence scores.
type Candidate struct {
	Record *models.StudentRecord
	Scores score.Scores
}

// Candidates returns unallocated records in category whose overall
// confidence meets minConfidence. Pass a negative minConfidence to use the
// service's configured fallback. Results follow the store's natural
// iteration order; no additional sort is imposed, so ordering across ties
// is only as stable as the store's own guarantee.
func (s *Service) Candidates(ctx context.Context, category string, minConfidence float64) ([]Candidate, error) {
	if minConfidence < 0 {
		minConfidence = s.minConfidence
	}

	recs, err := s.store.GetUnallocated(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list candidate students")
	}

	candidates := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		scores := score.Record(rec, s.weights)
		if scores.Overall >= minConfidence {
			candidates = append(candidates, Candidate{Record: rec, Scores: scores})
		}
	}
	return candidates, nil
}

// Stat summarizes a series of scores.
type Stat struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// AccuracyReport aggregates extraction quality across every record:
// similarity statistics for the fuzzy-matched name, accuracy ratios for
// the exact-matched phone and year, and the emails of records whose
// overall confidence fell below the threshold.
type AccuracyReport struct {
	TotalRecords        int      `json:"total_records"`
	NameSimilarity      Stat     `json:"name_similarity"`
	PhoneAccuracy       float64  `json:"phone_accuracy"`
	YearAccuracy        float64  `json:"year_accuracy"`
	OverallConfidence   Stat     `json:"overall_confidence"`
	Threshold           float64  `json:"threshold"`
	LowConfidenceEmails []string `json:"low_confidence_emails"`
}

// Report scores every record and aggregates the results. Pass a negative
// threshold to use the service's configured fallback. An empty store
// yields a zero report, not an error.
func (s *Service) Report(ctx context.Context, threshold float64) (*AccuracyReport, error) {
	if threshold < 0 {
		threshold = s.minConfidence
	}

	recs, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "build accuracy report")
	}

	report := &AccuracyReport{TotalRecords: len(recs), Threshold: threshold}
	if len(recs) == 0 {
		return report, nil
	}

	nameScores := make([]float64, 0, len(recs))
	overallScores := make([]float64, 0, len(recs))
	var phoneSum, yearSum float64
	for _, rec := range recs {
		scores := score.Record(rec, s.weights)
		nameScores = append(nameScores, scores.Name)
		overallScores = append(overallScores, scores.Overall)
		phoneSum += scores.Phone
		yearSum += scores.Year
		if scores.Overall < threshold {
			report.LowConfidenceEmails = append(report.LowConfidenceEmails, rec.Email)
		}
	}

	n := float64(len(recs))
	report.NameSimilarity = newStat(nameScores)
	report.OverallConfidence = newStat(overallScores)
	report.PhoneAccuracy = phoneSum / n
	report.YearAccuracy = yearSum / n
	return report, nil
}

func newStat(values []float64) Stat {
	st := Stat{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Mean = sum / float64(len(values))
	return st
}

func (s *Service) translateStoreErr(err error, email string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "no student with email "+email)
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "update allocation for "+email)
}
