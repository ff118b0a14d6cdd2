// Package extract pulls structured fields out of unstructured recognized
// text. Each extractor is a pure function over one string; absence is a
// normal result reported through the second return value.
//
// The three extractors are independent: a miss on one never affects the
// others.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// AdmissionCode is the structured identifier printed on an ID card, e.g.
// BTH23-27@152304: course letters, two-digit start and end years, and a
// numeric suffix.
type AdmissionCode struct {
	Code          string
	CourseCode    string
	AdmissionYear int
	BatchEndYear  int
}

var (
	admissionRe = regexp.MustCompile(`([A-Z]{2,4})(\d{2})-(\d{2})@\d+`)

	// Accepts an optional +91 prefix and tolerates single separators
	// between digit groups; only the bare 10 digits are returned.
	phoneRe = regexp.MustCompile(`(?:\+91[-\s]?)?([6-9](?:[-\s]?\d){9})`)

	digitsOnlyRe = regexp.MustCompile(`\D`)
)

// Admission returns the first well-formed admission code in text. Two-digit
// years are reconstructed as 2000+YY. Malformed codes are not partially
// accepted.
func Admission(text string) (AdmissionCode, bool) {
	m := admissionRe.FindStringSubmatch(text)
	if m == nil {
		return AdmissionCode{}, false
	}

	start, _ := strconv.Atoi(m[2])
	end, _ := strconv.Atoi(m[3])

	return AdmissionCode{
		Code:          m[0],
		CourseCode:    m[1],
		AdmissionYear: 2000 + start,
		BatchEndYear:  2000 + end,
	}, true
}

// Phone returns the first Indian mobile number in text as its bare ten
// digits, discarding any +91 prefix and inner separators.
func Phone(text string) (string, bool) {
	m := phoneRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return digitsOnlyRe.ReplaceAllString(m[1], ""), true
}

// Name scans text line by line for a labeled student name. A line is a
// candidate only when it contains both "Student" and "Name" literally;
// label fragments and colons are stripped and the remainder is accepted
// only when it has at least two tokens, a minimal guard against one-word
// noise. Multi-line names and reordered labels are out of reach of this
// heuristic.
func Name(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "Student") || !strings.Contains(line, "Name") {
			continue
		}

		cleaned := line
		cleaned = strings.ReplaceAll(cleaned, "Student's Name", "")
		cleaned = strings.ReplaceAll(cleaned, "Student Name", "")
		cleaned = strings.ReplaceAll(cleaned, "Name", "")
		cleaned = strings.ReplaceAll(cleaned, ":", "")
		cleaned = strings.TrimSpace(cleaned)

		if len(strings.Fields(cleaned)) >= 2 {
			return cleaned, true
		}
	}
	return "", false
}
