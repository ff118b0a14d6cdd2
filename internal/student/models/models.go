package models

import (
	"strings"
	"time"

	platformstrings "volunteerd/pkg/platform/strings"
)

// Submission is one self-reported registration row, treated as ground truth
// for reconciliation. Immutable per ingestion attempt.
type Submission struct {
	Email       string
	Name        string
	CourseCode  string
	YearOfStudy int
	Phone       string
	Categories  string // comma-joined, as submitted
	IDCardURL   string
}

// ExtractedFields holds whatever the field extractor recovered from the
// recognized ID-card text. Any field may be nil; absence is an expected
// outcome, not an error.
type ExtractedFields struct {
	Name        *string
	AdmissionNo *string
	Phone       *string
}

// DerivedFields are computed from the extracted admission code. Populated
// only when an admission code was found.
type DerivedFields struct {
	AdmissionYear       *int
	BatchEndYear        *int
	ComputedYearOfStudy *int
}

// StudentRecord is the persisted union of typed, extracted and derived
// fields plus allocation state, keyed by email.
type StudentRecord struct {
	Email string

	TypedName        string
	TypedCourseCode  string
	TypedYearOfStudy int
	TypedPhone       string
	TypedCategories  string

	Extracted ExtractedFields
	Derived   DerivedFields

	Allocation Allocation

	CreatedAt time.Time
}

// HasCategory reports whether the record's category string contains the
// given category. Raw substring containment, case sensitive: a category
// that is a substring of another will match both.
func (r *StudentRecord) HasCategory(category string) bool {
	return strings.Contains(r.TypedCategories, category)
}

// Clone returns a deep copy. The pointer fields of Extracted and Derived
// are duplicated, so writes through the copy never reach the original.
func (r *StudentRecord) Clone() *StudentRecord {
	cp := *r
	cp.Extracted = ExtractedFields{
		Name:        clonePtr(r.Extracted.Name),
		AdmissionNo: clonePtr(r.Extracted.AdmissionNo),
		Phone:       clonePtr(r.Extracted.Phone),
	}
	cp.Derived = DerivedFields{
		AdmissionYear:       clonePtr(r.Derived.AdmissionYear),
		BatchEndYear:        clonePtr(r.Derived.BatchEndYear),
		ComputedYearOfStudy: clonePtr(r.Derived.ComputedYearOfStudy),
	}
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CategoryList splits the comma-joined category string into a cleaned
// slice: trimmed, deduplicated, empty entries dropped. Matching still
// happens on the raw string; this is a presentation helper.
func (r *StudentRecord) CategoryList() []string {
	if r.TypedCategories == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(r.TypedCategories, ","))
}
