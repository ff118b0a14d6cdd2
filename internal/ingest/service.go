// Package ingest runs the reconciliation pipeline: for each registration
// submission it acquires the ID card image, recognizes its text, extracts
// structured fields, derives the study year, and upserts the union into the
// record store. Failures are isolated per submission; one bad record never
// stops the batch.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"volunteerd/internal/academic"
	"volunteerd/internal/extract"
	"volunteerd/internal/platform/metrics"
	"volunteerd/internal/student/models"
)

// Source yields the registration submissions for one ingestion run. The
// sequence is finite and restartable: re-running re-reads the full source.
type Source interface {
	Read(ctx context.Context) ([]models.Submission, error)
}

// Fetcher acquires an ID card image and returns a local file path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// TextRecognizer turns an image file into recognized text, possibly empty.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, imagePath string) (string, error)
}

// TextCache stores recognized text keyed by image URL so re-runs skip the
// fetch and OCR of unchanged cards. Optional.
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
}

// Store is the slice of the record store the coordinator needs.
type Store interface {
	Upsert(ctx context.Context, rec *models.StudentRecord) error
}

// Service coordinates one ingestion run. Submissions are processed
// sequentially.
type Service struct {
	source  Source
	fetcher Fetcher
	ocr     TextRecognizer
	store   Store
	cache   TextCache
	clock   func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for study-year derivation.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTextCache enables caching of recognized text by image URL.
func WithTextCache(cache TextCache) Option {
	return func(s *Service) { s.cache = cache }
}

// New creates an ingestion Service.
func New(source Source, fetcher Fetcher, ocr TextRecognizer, store Store,
	logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		source:  source,
		fetcher: fetcher,
		ocr:     ocr,
		store:   store,
		clock:   time.Now,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Report summarizes one ingestion run.
type Report struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Run reads the full submission source and ingests each row. Per-row
// failures are logged with the submission's email and counted, not raised;
// only a source read failure aborts the run.
func (s *Service) Run(ctx context.Context) (Report, error) {
	subs, err := s.source.Read(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read submissions: %w", err)
	}

	var report Report
	for _, sub := range subs {
		if err := s.processOne(ctx, sub); err != nil {
			s.logger.ErrorContext(ctx, "submission ingestion failed",
				"email", sub.Email,
				"error", err.Error(),
			)
			s.metrics.IncrementSubmissionsFailed()
			report.Failed++
			continue
		}
		s.metrics.IncrementSubmissionsProcessed()
		report.Processed++
	}

	s.logger.InfoContext(ctx, "ingestion run finished",
		"processed", report.Processed,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *Service) processOne(ctx context.Context, sub models.Submission) error {
	text := s.recognizedText(ctx, sub)
	rec := Reconcile(sub, text, s.clock())
	return s.store.Upsert(ctx, &rec)
}

// recognizedText acquires and OCRs the submission's ID card. Acquisition
// and OCR failures are downgraded to empty text: the record is still
// ingested, with all extracted fields absent.
func (s *Service) recognizedText(ctx context.Context, sub models.Submission) string {
	if s.cache != nil {
		if text, ok, err := s.cache.Get(ctx, sub.IDCardURL); err != nil {
			s.logger.WarnContext(ctx, "text cache read failed",
				"email", sub.Email,
				"error", err.Error(),
			)
		} else if ok {
			return text
		}
	}

	path, err := s.fetcher.Fetch(ctx, sub.IDCardURL)
	if err != nil {
		s.logger.WarnContext(ctx, "id card fetch failed, continuing without text",
			"email", sub.Email,
			"url", sub.IDCardURL,
			"error", err.Error(),
		)
		s.metrics.IncrementAcquisitionFailures()
		return ""
	}

	text, err := s.ocr.RecognizeText(ctx, path)
	if err != nil {
		s.logger.WarnContext(ctx, "ocr failed, continuing without text",
			"email", sub.Email,
			"error", err.Error(),
		)
		s.metrics.IncrementAcquisitionFailures()
		return ""
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sub.IDCardURL, text); err != nil {
			s.logger.WarnContext(ctx, "text cache write failed",
				"email", sub.Email,
				"error", err.Error(),
			)
		}
	}
	return text
}

// Reconcile builds the persisted record union from a submission and its
// recognized text. Derived fields are computed only when an admission code
// was extracted. Pure: today is injected.
func Reconcile(sub models.Submission, text string, today time.Time) models.StudentRecord {
	rec := models.StudentRecord{
		Email:            sub.Email,
		TypedName:        sub.Name,
		TypedCourseCode:  sub.CourseCode,
		TypedYearOfStudy: sub.YearOfStudy,
		TypedPhone:       sub.Phone,
		TypedCategories:  sub.Categories,
	}

	if name, ok := extract.Name(text); ok {
		rec.Extracted.Name = &name
	}
	if phone, ok := extract.Phone(text); ok {
		rec.Extracted.Phone = &phone
	}
	if code, ok := extract.Admission(text); ok {
		rec.Extracted.AdmissionNo = &code.Code

		admYear := code.AdmissionYear
		endYear := code.BatchEndYear
		studyYear := academic.StudyYear(admYear, today)
		rec.Derived = models.DerivedFields{
			AdmissionYear:       &admYear,
			BatchEndYear:        &endYear,
			ComputedYearOfStudy: &studyYear,
		}
	}
	return rec
}
