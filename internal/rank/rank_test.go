package rank

import (
	"testing"
	"time"

	"github.com/reacher-cli/reacher/internal/job"
)

func candidate(category job.RoleCategory, discovered time.Time, url string) *job.Opportunity {
	return &job.Opportunity{
		Company:      "Acme",
		Title:        "Developer",
		Category:     category,
		DiscoveredAt: discovered,
		Source:       job.SourceLinkedInJobs,
		URL:          url,
	}
}

func TestPickEmptyReturnsNil(t *testing.T) {
	r := New(job.DefaultCategoryTable())
	if got := r.Pick(nil); got != nil {
		t.Fatalf("expected nil for empty bucket, got %v", got)
	}
}

func TestPickPrefersCategoryOverRecency(t *testing.T) {
	// Full-stack seen at 10:00, JS/TS seen at 11:00: the later JS/TS
	// opportunity must still win on category.
	day := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	fullStack := candidate(job.CategoryFullStack, day.Add(10*time.Hour), "https://example.com/fs")
	jsts := candidate(job.CategoryJSTS, day.Add(11*time.Hour), "https://example.com/js")

	r := New(job.DefaultCategoryTable())
	if got := r.Pick([]*job.Opportunity{fullStack, jsts}); got != jsts {
		t.Fatalf("expected the js-ts opportunity, got %s (%s)", got.URL, got.Category)
	}
}

func TestPickBreaksCategoryTiesByEarliestDiscovery(t *testing.T) {
	day := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	early := candidate(job.CategoryBackend, day.Add(1*time.Hour), "https://example.com/early")
	late := candidate(job.CategoryBackend, day.Add(2*time.Hour), "https://example.com/late")

	r := New(job.DefaultCategoryTable())
	if got := r.Pick([]*job.Opportunity{late, early}); got != early {
		t.Fatalf("expected the earliest candidate, got %s", got.URL)
	}
}

func TestPickIsDeterministicOnIdenticalTimestamps(t *testing.T) {
	at := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	a := candidate(job.CategoryBackend, at, "https://example.com/a")
	b := candidate(job.CategoryBackend, at, "https://example.com/b")

	r := New(job.DefaultCategoryTable())
	first := r.Pick([]*job.Opportunity{a, b})
	second := r.Pick([]*job.Opportunity{b, a})

	if first != second {
		t.Fatal("pick must not depend on input order")
	}
	if first != a {
		t.Fatalf("expected url tiebreak to choose %s, got %s", a.URL, first.URL)
	}
}

func TestSortOrdersBestFirst(t *testing.T) {
	day := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	other := candidate(job.CategoryOther, day, "https://example.com/1")
	frontend := candidate(job.CategoryFrontend, day, "https://example.com/2")
	jsts := candidate(job.CategoryJSTS, day, "https://example.com/3")

	list := []*job.Opportunity{other, frontend, jsts}
	New(job.DefaultCategoryTable()).Sort(list)

	if list[0] != jsts || list[1] != frontend || list[2] != other {
		t.Fatalf("unexpected order: %s, %s, %s", list[0].Category, list[1].Category, list[2].Category)
	}
}
