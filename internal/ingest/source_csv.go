package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"volunteerd/internal/student/models"
)

// Column headers as exported by the registration form.
const (
	colEmail      = "Email address"
	colName       = "Name"
	colCourse     = "Course"
	colYear       = "Year of Study"
	colPhone      = "WhatsApp Number"
	colCategories = "What categories would you like to volunteer for"
	colIDCard     = "ID Card"
)

// CSVSource reads submissions from a CSV export of the registration form.
// Each Read re-opens and re-reads the full file, making the source
// restartable.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source backed by the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Read parses every row of the export. A malformed header is a read
// failure; malformed rows fail individually at ingestion time, so a bad
// year value is reported on the row's submission rather than aborting the
// read.
func (s *CSVSource) Read(ctx context.Context) ([]models.Submission, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open responses file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse responses file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	subs := make([]models.Submission, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		subs = append(subs, submissionFromRow(row, idx))
	}
	return subs, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colEmail, colName, colCourse, colYear, colPhone, colCategories, colIDCard} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("responses file missing column %q", required)
		}
	}
	return idx, nil
}

func submissionFromRow(row []string, idx map[string]int) models.Submission {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	// A non-numeric declared year becomes 0, which simply never matches the
	// computed year; the row still ingests.
	year, _ := strconv.Atoi(cell(colYear))

	return models.Submission{
		Email:       cell(colEmail),
		Name:        cell(colName),
		CourseCode:  cell(colCourse),
		YearOfStudy: year,
		Phone:       cell(colPhone),
		Categories:  cell(colCategories),
		IDCardURL:   cell(colIDCard),
	}
}
