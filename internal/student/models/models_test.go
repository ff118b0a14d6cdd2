package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCategory(t *testing.T) {
	rec := &StudentRecord{TypedCategories: "Hackathon, Quiz Night"}

	t.Run("exact entry matches", func(t *testing.T) {
		assert.True(t, rec.HasCategory("Hackathon"))
	})

	t.Run("substring of an entry matches", func(t *testing.T) {
		assert.True(t, rec.HasCategory("Quiz"))
	})

	t.Run("case sensitive", func(t *testing.T) {
		assert.False(t, rec.HasCategory("hackathon"))
	})

	t.Run("absent category does not match", func(t *testing.T) {
		assert.False(t, rec.HasCategory("Debate"))
	})
}

func TestClone(t *testing.T) {
	name := "Jane Doe"
	year := 2
	rec := &StudentRecord{
		Email:     "a@x.com",
		Extracted: ExtractedFields{Name: &name},
		Derived:   DerivedFields{ComputedYearOfStudy: &year},
	}

	cp := rec.Clone()
	*cp.Extracted.Name = "mutated"
	*cp.Derived.ComputedYearOfStudy = 99

	assert.Equal(t, "Jane Doe", *rec.Extracted.Name)
	assert.Equal(t, 2, *rec.Derived.ComputedYearOfStudy)

	t.Run("nil pointers stay nil", func(t *testing.T) {
		cp := (&StudentRecord{Email: "b@x.com"}).Clone()
		assert.Nil(t, cp.Extracted.Phone)
		assert.Nil(t, cp.Derived.AdmissionYear)
	})
}

func TestCategoryList(t *testing.T) {
	tests := []struct {
		name       string
		categories string
		expected   []string
	}{
		{
			name:       "empty string",
			categories: "",
			expected:   nil,
		},
		{
			name:       "single category",
			categories: "Hackathon",
			expected:   []string{"Hackathon"},
		},
		{
			name:       "trims and dedupes",
			categories: " Hackathon , Quiz, Hackathon ,, ",
			expected:   []string{"Hackathon", "Quiz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &StudentRecord{TypedCategories: tt.categories}
			assert.Equal(t, tt.expected, rec.CategoryList())
		})
	}
}
