//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"volunteerd/internal/student/models"
	"volunteerd/internal/student/store"
	"volunteerd/pkg/platform/sentinel"
	"volunteerd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "students"))
}

func testRecord(email string) *models.StudentRecord {
	admNo := "BTH23-27@152304"
	phone := "9876543210"
	admYear, endYear, compYear := 2023, 2027, 2
	return &models.StudentRecord{
		Email:            email,
		TypedName:        "Jane Doe",
		TypedCourseCode:  "BTH",
		TypedYearOfStudy: 2,
		TypedPhone:       "9876543210",
		TypedCategories:  "Hackathon, Quiz",
		Extracted: models.ExtractedFields{
			AdmissionNo: &admNo,
			Phone:       &phone,
		},
		Derived: models.DerivedFields{
			AdmissionYear:       &admYear,
			BatchEndYear:        &endYear,
			ComputedYearOfStudy: &compYear,
		},
	}
}

func (s *PostgresStoreSuite) TestUpsertRoundTrip() {
	ctx := context.Background()

	s.Require().NoError(s.store.Upsert(ctx, testRecord("a@x.com")))

	got, err := s.store.Get(ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal("Jane Doe", got.TypedName)
	s.Require().NotNil(got.Extracted.AdmissionNo)
	s.Equal("BTH23-27@152304", *got.Extracted.AdmissionNo)
	s.Require().NotNil(got.Derived.ComputedYearOfStudy)
	s.Equal(2, *got.Derived.ComputedYearOfStudy)
	s.Nil(got.Extracted.Name)
	s.False(got.Allocation.Allocated())
	s.False(got.CreatedAt.IsZero())
}

func (s *PostgresStoreSuite) TestUpsertPreservesAllocation() {
	ctx := context.Background()

	s.Require().NoError(s.store.Upsert(ctx, testRecord("a@x.com")))
	s.Require().NoError(s.store.SetAllocation(ctx, "a@x.com", models.AllocatedTo("Quiz Night")))

	updated := testRecord("a@x.com")
	updated.TypedName = "Jane D. Doe"
	s.Require().NoError(s.store.Upsert(ctx, updated))

	got, err := s.store.Get(ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal("Jane D. Doe", got.TypedName)
	s.True(got.Allocation.Allocated())
	event, ok := got.Allocation.Event()
	s.Require().True(ok)
	s.Equal("Quiz Night", event)
}

func (s *PostgresStoreSuite) TestAllocationTransitions() {
	ctx := context.Background()

	s.Require().NoError(s.store.Upsert(ctx, testRecord("a@x.com")))

	s.Require().NoError(s.store.SetAllocation(ctx, "a@x.com", models.AllocatedTo("Gaming")))
	s.Require().NoError(s.store.SetAllocation(ctx, "a@x.com", models.Unallocated()))

	got, err := s.store.Get(ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(got.Allocation.Allocated())
	_, ok := got.Allocation.Event()
	s.False(ok)

	err = s.store.SetAllocation(ctx, "missing@x.com", models.AllocatedTo("Gaming"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestQueries() {
	ctx := context.Background()

	a := testRecord("a@x.com")
	a.TypedCategories = "Hackathon, Gaming"
	b := testRecord("b@x.com")
	b.TypedCategories = "Quiz"
	c := testRecord("c@x.com")
	c.TypedCategories = "Gaming"

	s.Require().NoError(s.store.Upsert(ctx, a))
	s.Require().NoError(s.store.Upsert(ctx, b))
	s.Require().NoError(s.store.Upsert(ctx, c))
	s.Require().NoError(s.store.SetAllocation(ctx, "c@x.com", models.AllocatedTo("Game Jam")))

	all, err := s.store.GetAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)

	gaming, err := s.store.GetByCategory(ctx, "Gaming")
	s.Require().NoError(err)
	s.Len(gaming, 2)

	unallocated, err := s.store.GetUnallocated(ctx, "")
	s.Require().NoError(err)
	s.Len(unallocated, 2)

	unallocatedGaming, err := s.store.GetUnallocated(ctx, "Gaming")
	s.Require().NoError(err)
	s.Require().Len(unallocatedGaming, 1)
	s.Equal("a@x.com", unallocatedGaming[0].Email)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "missing@x.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
