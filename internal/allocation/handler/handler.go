// Package handler exposes the query and allocation surface over HTTP. It
// delegates to the allocation and ingest services without embedding
// business logic.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"volunteerd/internal/allocation"
	"volunteerd/internal/ingest"
	"volunteerd/internal/score"
	"volunteerd/internal/student/models"
	"volunteerd/internal/transport/http/shared"
	pkgerrors "volunteerd/pkg/domain-errors"
)

// AllocationService is the allocation/query surface the handler needs.
type AllocationService interface {
	Allocate(ctx context.Context, email, event string) error
	Unallocate(ctx context.Context, email string) error
	All(ctx context.Context) ([]*models.StudentRecord, error)
	ByCategory(ctx context.Context, category string) ([]*models.StudentRecord, error)
	Unallocated(ctx context.Context, category string) ([]*models.StudentRecord, error)
	Candidates(ctx context.Context, category string, minConfidence float64) ([]allocation.Candidate, error)
	Report(ctx context.Context, threshold float64) (*allocation.AccuracyReport, error)
}

// IngestRunner triggers one ingestion run over the configured source.
type IngestRunner interface {
	Run(ctx context.Context) (ingest.Report, error)
}

// Handler handles student query and allocation endpoints.
type Handler struct {
	logger     *slog.Logger
	allocation AllocationService
	ingest     IngestRunner
}

// New creates a new Handler.
func New(allocation AllocationService, ingest IngestRunner, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		allocation: allocation,
		ingest:     ingest,
	}
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/students", h.handleListStudents)
	r.Get("/students/unallocated", h.handleListUnallocated)
	r.Get("/students/candidates", h.handleListCandidates)
	r.Post("/students/{email}/allocate", h.handleAllocate)
	r.Post("/students/{email}/unallocate", h.handleUnallocate)
	r.Post("/ingest/run", h.handleIngestRun)
	r.Get("/report", h.handleReport)
}

// studentResponse flattens a record for transport; the allocation sum type
// becomes a bool plus an optional event.
type studentResponse struct {
	Email            string   `json:"email"`
	TypedName        string   `json:"typed_name"`
	TypedCourseCode  string   `json:"typed_course_code"`
	TypedYearOfStudy int      `json:"typed_year_of_study"`
	TypedPhone       string   `json:"typed_phone"`
	TypedCategories  string   `json:"typed_categories"`
	Categories       []string `json:"categories,omitempty"`
	OCRName          *string  `json:"ocr_name,omitempty"`
	OCRAdmissionNo   *string  `json:"ocr_admission_no,omitempty"`
	OCRPhone         *string  `json:"ocr_phone,omitempty"`
	AdmissionYear    *int     `json:"admission_year,omitempty"`
	BatchEndYear     *int     `json:"batch_end_year,omitempty"`
	ComputedYear     *int     `json:"computed_year_of_study,omitempty"`
	Allocated        bool     `json:"allocated"`
	AllocatedEvent   string   `json:"allocated_event,omitempty"`
}

func toResponse(rec *models.StudentRecord) studentResponse {
	resp := studentResponse{
		Email:            rec.Email,
		TypedName:        rec.TypedName,
		TypedCourseCode:  rec.TypedCourseCode,
		TypedYearOfStudy: rec.TypedYearOfStudy,
		TypedPhone:       rec.TypedPhone,
		TypedCategories:  rec.TypedCategories,
		Categories:       rec.CategoryList(),
		OCRName:          rec.Extracted.Name,
		OCRAdmissionNo:   rec.Extracted.AdmissionNo,
		OCRPhone:         rec.Extracted.Phone,
		AdmissionYear:    rec.Derived.AdmissionYear,
		BatchEndYear:     rec.Derived.BatchEndYear,
		ComputedYear:     rec.Derived.ComputedYearOfStudy,
		Allocated:        rec.Allocation.Allocated(),
	}
	if event, ok := rec.Allocation.Event(); ok {
		resp.AllocatedEvent = event
	}
	return resp
}

func toResponses(recs []*models.StudentRecord) []studentResponse {
	out := make([]studentResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	return out
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		recs []*models.StudentRecord
		err  error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		recs, err = h.allocation.ByCategory(ctx, category)
	} else {
		recs, err = h.allocation.All(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list students", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponses(recs))
}

func (h *Handler) handleListUnallocated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recs, err := h.allocation.Unallocated(ctx, r.URL.Query().Get("category"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list unallocated students", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponses(recs))
}

type candidateResponse struct {
	Student studentResponse `json:"student"`
	Scores  score.Scores    `json:"scores"`
}

func (h *Handler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category := r.URL.Query().Get("category")
	if category == "" {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "category query parameter is required"))
		return
	}

	minConfidence := -1.0
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "min_confidence must be a number in [0,1]"))
			return
		}
		minConfidence = parsed
	}

	candidates, err := h.allocation.Candidates(ctx, category, minConfidence)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list candidates", "error", err.Error())
		shared.WriteError(w, err)
		return
	}

	out := make([]candidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateResponse{Student: toResponse(c.Record), Scores: c.Scores})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type allocateRequest struct {
	Event string `json:"event"`
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := chi.URLParam(r, "email")

	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.allocation.Allocate(ctx, email, req.Event); err != nil {
		if !pkgerrors.Is(err, pkgerrors.CodeBadRequest) && !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to allocate student", "email", email, "error", err.Error())
		}
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnallocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := chi.URLParam(r, "email")

	if err := h.allocation.Unallocate(ctx, email); err != nil {
		if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to unallocate student", "email", email, "error", err.Error())
		}
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threshold := -1.0
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "min_confidence must be a number in [0,1]"))
			return
		}
		threshold = parsed
	}

	report, err := h.allocation.Report(ctx, threshold)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build accuracy report", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.ingest.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "ingestion run failed", "error", err.Error())
		shared.WriteError(w, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "ingestion run failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}
