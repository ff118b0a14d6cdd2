package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerd/internal/platform/metrics"
	"volunteerd/internal/student/models"
	"volunteerd/internal/student/store"
)

const cardText = "Some College\nStudent's Name: Jane Doe\nBTH23-27@152304\n+91 98765 43210\n"

type fakeSource struct {
	subs []models.Submission
	err  error
}

func (f *fakeSource) Read(context.Context) ([]models.Submission, error) {
	return f.subs, f.err
}

type fakeFetcher struct {
	failURLs map[string]bool
	calls    int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls++
	if f.failURLs[url] {
		return "", errors.New("fetch: connection refused")
	}
	return "/tmp/" + url + ".jpg", nil
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) RecognizeText(context.Context, string) (string, error) {
	return f.text, f.err
}

type mapCache struct {
	entries map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	text, ok := c.entries[key]
	return text, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, text string) error {
	c.entries[key] = text
	return nil
}

type failingStore struct {
	failEmails map[string]bool
	inner      *store.Memory
}

func (s *failingStore) Upsert(ctx context.Context, rec *models.StudentRecord) error {
	if s.failEmails[rec.Email] {
		return errors.New("upsert: connection reset")
	}
	return s.inner.Upsert(ctx, rec)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.NewWith(prometheus.NewRegistry())
}

func sub(email, url string) models.Submission {
	return models.Submission{
		Email:       email,
		Name:        "Jane Doe",
		CourseCode:  "BTH",
		YearOfStudy: 2,
		Phone:       "9876543210",
		Categories:  "Hackathon, Quiz",
		IDCardURL:   url,
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

	t.Run("full pipeline populates extracted and derived fields", func(t *testing.T) {
		mem := store.NewMemory()
		svc := New(
			&fakeSource{subs: []models.Submission{sub("a@x.com", "card-a")}},
			&fakeFetcher{},
			&fakeOCR{text: cardText},
			mem,
			testLogger(), testMetrics(),
			WithClock(func() time.Time { return today }),
		)

		report, err := svc.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, Report{Processed: 1}, report)

		rec, err := mem.Get(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, rec.Extracted.Name)
		assert.Equal(t, "Jane Doe", *rec.Extracted.Name)
		require.NotNil(t, rec.Extracted.AdmissionNo)
		assert.Equal(t, "BTH23-27@152304", *rec.Extracted.AdmissionNo)
		require.NotNil(t, rec.Extracted.Phone)
		assert.Equal(t, "9876543210", *rec.Extracted.Phone)
		require.NotNil(t, rec.Derived.AdmissionYear)
		assert.Equal(t, 2023, *rec.Derived.AdmissionYear)
		require.NotNil(t, rec.Derived.ComputedYearOfStudy)
		assert.Equal(t, 2, *rec.Derived.ComputedYearOfStudy)
	})

	t.Run("acquisition failure on one row does not stop the batch", func(t *testing.T) {
		mem := store.NewMemory()
		svc := New(
			&fakeSource{subs: []models.Submission{
				sub("a@x.com", "card-a"),
				sub("b@x.com", "card-b"),
				sub("c@x.com", "card-c"),
			}},
			&fakeFetcher{failURLs: map[string]bool{"card-b": true}},
			&fakeOCR{text: cardText},
			mem,
			testLogger(), testMetrics(),
			WithClock(func() time.Time { return today }),
		)

		report, err := svc.Run(ctx)
		require.NoError(t, err)
		// The failed fetch is downgraded to empty text, so all three persist.
		assert.Equal(t, Report{Processed: 3}, report)

		all, err := mem.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)

		// The failed row carries no extracted fields.
		recB, err := mem.Get(ctx, "b@x.com")
		require.NoError(t, err)
		assert.Nil(t, recB.Extracted.Name)
		assert.Nil(t, recB.Extracted.AdmissionNo)
		assert.Nil(t, recB.Extracted.Phone)
		assert.Nil(t, recB.Derived.ComputedYearOfStudy)
	})

	t.Run("ocr failure downgrades to empty text", func(t *testing.T) {
		mem := store.NewMemory()
		m := testMetrics()
		svc := New(
			&fakeSource{subs: []models.Submission{sub("a@x.com", "card-a")}},
			&fakeFetcher{},
			&fakeOCR{err: errors.New("engine crashed")},
			mem,
			testLogger(), m,
			WithClock(func() time.Time { return today }),
		)

		report, err := svc.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, Report{Processed: 1}, report)

		rec, err := mem.Get(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Nil(t, rec.Extracted.Phone)
	})

	t.Run("store failure is isolated to its row", func(t *testing.T) {
		mem := store.NewMemory()
		svc := New(
			&fakeSource{subs: []models.Submission{
				sub("a@x.com", "card-a"),
				sub("bad@x.com", "card-b"),
				sub("c@x.com", "card-c"),
			}},
			&fakeFetcher{},
			&fakeOCR{text: cardText},
			&failingStore{failEmails: map[string]bool{"bad@x.com": true}, inner: mem},
			testLogger(), testMetrics(),
			WithClock(func() time.Time { return today }),
		)

		report, err := svc.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, Report{Processed: 2, Failed: 1}, report)

		all, err := mem.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("source failure aborts the run", func(t *testing.T) {
		svc := New(
			&fakeSource{err: errors.New("sheet unreachable")},
			&fakeFetcher{},
			&fakeOCR{},
			store.NewMemory(),
			testLogger(), testMetrics(),
		)

		_, err := svc.Run(ctx)
		assert.Error(t, err)
	})

	t.Run("cache hit skips fetch and ocr", func(t *testing.T) {
		mem := store.NewMemory()
		fetcher := &fakeFetcher{}
		cache := &mapCache{entries: map[string]string{"card-a": cardText}}
		svc := New(
			&fakeSource{subs: []models.Submission{sub("a@x.com", "card-a")}},
			fetcher,
			&fakeOCR{text: ""},
			mem,
			testLogger(), testMetrics(),
			WithClock(func() time.Time { return today }),
			WithTextCache(cache),
		)

		_, err := svc.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, fetcher.calls)

		rec, err := mem.Get(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, rec.Extracted.Phone)
		assert.Equal(t, "9876543210", *rec.Extracted.Phone)
	})

	t.Run("cache miss populates the cache", func(t *testing.T) {
		cache := &mapCache{entries: map[string]string{}}
		svc := New(
			&fakeSource{subs: []models.Submission{sub("a@x.com", "card-a")}},
			&fakeFetcher{},
			&fakeOCR{text: cardText},
			store.NewMemory(),
			testLogger(), testMetrics(),
			WithTextCache(cache),
		)

		_, err := svc.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, cardText, cache.entries["card-a"])
	})
}

func TestReconcile(t *testing.T) {
	today := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty text yields typed fields only", func(t *testing.T) {
		rec := Reconcile(sub("a@x.com", "card-a"), "", today)
		assert.Equal(t, "a@x.com", rec.Email)
		assert.Equal(t, "Jane Doe", rec.TypedName)
		assert.Nil(t, rec.Extracted.Name)
		assert.Nil(t, rec.Extracted.AdmissionNo)
		assert.Nil(t, rec.Extracted.Phone)
		assert.Nil(t, rec.Derived.AdmissionYear)
	})

	t.Run("derived fields require an admission code", func(t *testing.T) {
		rec := Reconcile(sub("a@x.com", "card-a"), "+91 9876543210 only", today)
		require.NotNil(t, rec.Extracted.Phone)
		assert.Nil(t, rec.Derived.ComputedYearOfStudy)
	})
}
