// Package academic holds the cutoff-calendar arithmetic that turns an
// admission year into a current study year.
package academic

import "time"

// Academic year boundaries and program length cap.
const (
	CutoffMonth = time.August
	CutoffDay   = 1
	MaxYears    = 6
)

// daysPerYear averages leap years; changing it shifts year boundaries by
// hours, not days.
const daysPerYear = 365.25

// StudyYear computes the current study year for a student admitted in
// admissionYear, as of today. The academic cutoff is August 1 of the
// admission year: elapsed days since cutoff are divided by 365.25,
// truncated toward zero, plus one, so a student is in year 1 throughout
// their admission year. The result is clamped to [1, MaxYears], which
// bounds the output even for corrupted admission years.
//
// today is an explicit input so the computation stays deterministic.
func StudyYear(admissionYear int, today time.Time) int {
	cutoff := time.Date(admissionYear, CutoffMonth, CutoffDay, 0, 0, 0, 0, today.Location())

	days := today.Sub(cutoff).Hours() / 24
	year := int(days/daysPerYear) + 1

	if year < 1 {
		return 1
	}
	if year > MaxYears {
		return MaxYears
	}
	return year
}
