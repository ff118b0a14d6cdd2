// Package score compares a record's typed fields against its extracted and
// derived counterparts and aggregates the agreement into one confidence
// value. Scoring is a pure function of a record: it never fails and is
// never persisted.
package score

import (
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"volunteerd/internal/student/models"
)

// Weights control the contribution of each field comparison to the overall
// confidence. They are configuration, not constants, so candidate
// thresholds can be tuned without code changes.
type Weights struct {
	Name  float64
	Phone float64
	Year  float64
}

// DefaultWeights returns the standard 0.4/0.3/0.3 name/phone/year split.
func DefaultWeights() Weights {
	return Weights{Name: 0.4, Phone: 0.3, Year: 0.3}
}

// Scores holds the per-field agreement values and their weighted sum, all
// in [0,1].
type Scores struct {
	Name    float64 `json:"name_score"`
	Phone   float64 `json:"phone_score"`
	Year    float64 `json:"year_score"`
	Overall float64 `json:"overall_confidence"`
}

// Record scores one persisted record. Typed fields are the ground truth,
// extracted and derived fields the observation; the comparison is pinned in
// that direction by contract. Every absent field contributes 0.0, so any
// input shape yields a well-defined result.
func Record(rec *models.StudentRecord, w Weights) Scores {
	s := Scores{}

	if rec.Extracted.Name != nil {
		s.Name = NameSimilarity(rec.TypedName, *rec.Extracted.Name)
	}
	if rec.Extracted.Phone != nil {
		s.Phone = exactMatch(rec.TypedPhone, *rec.Extracted.Phone)
	}
	if rec.Derived.ComputedYearOfStudy != nil {
		s.Year = exactMatch(strconv.Itoa(rec.TypedYearOfStudy), strconv.Itoa(*rec.Derived.ComputedYearOfStudy))
	}

	s.Overall = w.Name*s.Name + w.Phone*s.Phone + w.Year*s.Year
	return s
}

// NameSimilarity returns the sequence-similarity ratio between two names,
// lowercased and trimmed: 2*matched/total in [0,1]. Empty input on either
// side scores 0.
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// exactMatch is literal string equality. No normalization: formatting
// differences count as mismatches.
func exactMatch(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}
