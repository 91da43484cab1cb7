package job

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeJobCard(t *testing.T) {
	posted := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	raw := RawJobCard{
		Title:       "  Senior React Developer ",
		Company:     " Acme Corp ",
		Location:    "Remote",
		Description: "Build things with React and TypeScript.",
		URL:         "https://example.com/jobs/1",
		PostedAt:    &posted,
	}

	opp, err := raw.Normalize(DefaultCategoryTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opp.Company != "Acme Corp" {
		t.Fatalf("company = %q", opp.Company)
	}
	if opp.CompanyKey() != "acme corp" {
		t.Fatalf("company key = %q", opp.CompanyKey())
	}
	if opp.Category != CategoryJSTS {
		t.Fatalf("category = %s, want js-ts", opp.Category)
	}
	if !opp.DiscoveredAt.Equal(posted) {
		t.Fatalf("discovered at = %v, want posting time", opp.DiscoveredAt)
	}
	if opp.Source != SourceLinkedInJobs {
		t.Fatalf("source = %s", opp.Source)
	}
}

func TestNormalizeRejectsEmptyCompany(t *testing.T) {
	raw := RawJobCard{
		Title:       "Developer",
		Company:     "   ",
		Description: "something",
		URL:         "https://example.com/jobs/2",
	}

	_, err := raw.Normalize(DefaultCategoryTable())

	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if malformed.Source != SourceLinkedInJobs {
		t.Fatalf("error source = %s", malformed.Source)
	}
}

func TestNormalizeRejectsEmptyDescription(t *testing.T) {
	raw := RawPost{Author: "someone", Text: "  ", URL: "https://linkedin.com/posts/x"}

	if _, err := raw.Normalize(DefaultCategoryTable()); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestNormalizePostFallsBackToAuthor(t *testing.T) {
	raw := RawPost{
		Author: "Jane Recruiter",
		Text:   "We are hiring a backend developer, reach out!",
		URL:    "https://linkedin.com/posts/abc",
	}

	opp, err := raw.Normalize(DefaultCategoryTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.Company != "Jane Recruiter" {
		t.Fatalf("company = %q, want author fallback", opp.Company)
	}
	if opp.Title != "Backend Developer" {
		t.Fatalf("title = %q", opp.Title)
	}
}

func TestNormalizeTweetBuildsStatusURL(t *testing.T) {
	raw := RawTweet{
		ID:     "123456",
		Author: "startup inc",
		Text:   "hiring a react developer, email jobs@startup.io",
	}

	opp, err := raw.Normalize(DefaultCategoryTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.URL != "https://x.com/i/status/123456" {
		t.Fatalf("url = %q", opp.URL)
	}
	if opp.Source != SourceTwitter {
		t.Fatalf("source = %s", opp.Source)
	}
}

func TestSightingKeyDistinguishesSourceAndURL(t *testing.T) {
	a := &Opportunity{Company: "Acme", Source: SourceTwitter, URL: "https://x.com/i/status/1"}
	b := &Opportunity{Company: "ACME", Source: SourceTwitter, URL: "https://x.com/i/status/1"}
	c := &Opportunity{Company: "Acme", Source: SourceTwitter, URL: "https://x.com/i/status/2"}

	if a.SightingKey() != b.SightingKey() {
		t.Fatal("company casing should not change the sighting key")
	}
	if a.SightingKey() == c.SightingKey() {
		t.Fatal("different urls must produce different sighting keys")
	}
}
