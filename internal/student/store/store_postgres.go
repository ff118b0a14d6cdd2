package store

import (
	"context"
	"database/sql"
	"fmt"

	"volunteerd/internal/student/models"
	"volunteerd/pkg/platform/sentinel"
)

// Postgres persists student records in PostgreSQL. Every mutation is a
// single statement, so per-record atomicity comes from the database;
// readers observe pre- or post-mutation state, never an interleaving.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS students (
	email TEXT PRIMARY KEY,

	typed_name TEXT NOT NULL,
	typed_course_code TEXT NOT NULL,
	typed_year_of_study INTEGER NOT NULL,
	typed_phone TEXT NOT NULL,
	typed_categories TEXT NOT NULL,

	ocr_name TEXT,
	ocr_admission_no TEXT,
	ocr_phone TEXT,

	admission_year INTEGER,
	batch_end_year INTEGER,
	computed_year_of_study INTEGER,

	allocated BOOLEAN NOT NULL DEFAULT FALSE,
	allocated_event TEXT,

	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the students table when missing. Admission-number
// uniqueness is advisory (spec), so no unique index is created for it.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure students schema: %w", err)
	}
	return nil
}

// Upsert inserts the record or overwrites all non-allocation columns of the
// row with the same email. Allocation columns and created_at are never
// listed in the update set, so they survive re-ingestion.
func (p *Postgres) Upsert(ctx context.Context, rec *models.StudentRecord) error {
	query := `
		INSERT INTO students (
			email,
			typed_name, typed_course_code, typed_year_of_study, typed_phone, typed_categories,
			ocr_name, ocr_admission_no, ocr_phone,
			admission_year, batch_end_year, computed_year_of_study
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (email) DO UPDATE SET
			typed_name = EXCLUDED.typed_name,
			typed_course_code = EXCLUDED.typed_course_code,
			typed_year_of_study = EXCLUDED.typed_year_of_study,
			typed_phone = EXCLUDED.typed_phone,
			typed_categories = EXCLUDED.typed_categories,
			ocr_name = EXCLUDED.ocr_name,
			ocr_admission_no = EXCLUDED.ocr_admission_no,
			ocr_phone = EXCLUDED.ocr_phone,
			admission_year = EXCLUDED.admission_year,
			batch_end_year = EXCLUDED.batch_end_year,
			computed_year_of_study = EXCLUDED.computed_year_of_study
	`
	_, err := p.db.ExecContext(ctx, query,
		rec.Email,
		rec.TypedName, rec.TypedCourseCode, rec.TypedYearOfStudy, rec.TypedPhone, rec.TypedCategories,
		rec.Extracted.Name, rec.Extracted.AdmissionNo, rec.Extracted.Phone,
		rec.Derived.AdmissionYear, rec.Derived.BatchEndYear, rec.Derived.ComputedYearOfStudy,
	)
	if err != nil {
		return fmt.Errorf("upsert student %s: %w", rec.Email, err)
	}
	return nil
}

// Get returns the record for email, or sentinel.ErrNotFound.
func (p *Postgres) Get(ctx context.Context, email string) (*models.StudentRecord, error) {
	row := p.db.QueryRowContext(ctx, selectColumns+` FROM students WHERE email = $1`, email)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", email, err)
	}
	return rec, nil
}

// GetAll returns every record in ingestion order (created_at, then email).
func (p *Postgres) GetAll(ctx context.Context) ([]*models.StudentRecord, error) {
	return p.query(ctx, selectColumns+` FROM students ORDER BY created_at, email`)
}

// GetByCategory returns records whose category string contains category.
// Substring containment, matching the in-memory store.
func (p *Postgres) GetByCategory(ctx context.Context, category string) ([]*models.StudentRecord, error) {
	return p.query(ctx,
		selectColumns+` FROM students WHERE typed_categories LIKE '%' || $1 || '%' ORDER BY created_at, email`,
		category)
}

// GetUnallocated returns unallocated records, filtered by category when
// category is non-empty.
func (p *Postgres) GetUnallocated(ctx context.Context, category string) ([]*models.StudentRecord, error) {
	if category == "" {
		return p.query(ctx,
			selectColumns+` FROM students WHERE NOT allocated ORDER BY created_at, email`)
	}
	return p.query(ctx,
		selectColumns+` FROM students WHERE NOT allocated AND typed_categories LIKE '%' || $1 || '%' ORDER BY created_at, email`,
		category)
}

// SetAllocation replaces the allocation state of the record for email.
func (p *Postgres) SetAllocation(ctx context.Context, email string, alloc models.Allocation) error {
	var event *string
	if e, ok := alloc.Event(); ok {
		event = &e
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE students SET allocated = $2, allocated_event = $3 WHERE email = $1`,
		email, alloc.Allocated(), event)
	if err != nil {
		return fmt.Errorf("set allocation for %s: %w", email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set allocation for %s: %w", email, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT email,
		typed_name, typed_course_code, typed_year_of_study, typed_phone, typed_categories,
		ocr_name, ocr_admission_no, ocr_phone,
		admission_year, batch_end_year, computed_year_of_study,
		allocated, allocated_event, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.StudentRecord, error) {
	var (
		rec       models.StudentRecord
		ocrName   sql.NullString
		ocrAdmNo  sql.NullString
		ocrPhone  sql.NullString
		admYear   sql.NullInt64
		endYear   sql.NullInt64
		compYear  sql.NullInt64
		allocated bool
		event     sql.NullString
	)

	err := row.Scan(
		&rec.Email,
		&rec.TypedName, &rec.TypedCourseCode, &rec.TypedYearOfStudy, &rec.TypedPhone, &rec.TypedCategories,
		&ocrName, &ocrAdmNo, &ocrPhone,
		&admYear, &endYear, &compYear,
		&allocated, &event, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Extracted = models.ExtractedFields{
		Name:        nullStr(ocrName),
		AdmissionNo: nullStr(ocrAdmNo),
		Phone:       nullStr(ocrPhone),
	}
	rec.Derived = models.DerivedFields{
		AdmissionYear:       nullInt(admYear),
		BatchEndYear:        nullInt(endYear),
		ComputedYearOfStudy: nullInt(compYear),
	}
	if allocated {
		rec.Allocation = models.AllocatedTo(event.String)
	} else {
		rec.Allocation = models.Unallocated()
	}
	return &rec, nil
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]*models.StudentRecord, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []*models.StudentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
