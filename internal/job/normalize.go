package job

import (
	"fmt"
	"strings"
	"time"
)

// MalformedRecordError reports a raw listing that cannot become an
// Opportunity. Such records are dropped and logged, never entering the
// pipeline.
type MalformedRecordError struct {
	Source Source
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.Source, e.Reason)
}

// Raw is a source-specific listing record. Each source produces its own
// variant; Normalize is the only place source shapes are visible.
type Raw interface {
	RawSource() Source
	Normalize(rules CategoryTable) (*Opportunity, error)
}

// RawJobCard is a card scraped from the public LinkedIn jobs search.
type RawJobCard struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	PostedAt    *time.Time
}

func (r RawJobCard) RawSource() Source { return SourceLinkedInJobs }

func (r RawJobCard) Normalize(rules CategoryTable) (*Opportunity, error) {
	return normalize(SourceLinkedInJobs, r.Title, r.Company, r.Location, r.Description, r.URL, r.PostedAt, rules)
}

// RawPost is a public LinkedIn hiring post.
type RawPost struct {
	Author  string
	Company string
	Text    string
	URL     string
}

func (r RawPost) RawSource() Source { return SourceLinkedInPosts }

func (r RawPost) Normalize(rules CategoryTable) (*Opportunity, error) {
	company := r.Company
	if strings.TrimSpace(company) == "" {
		company = r.Author
	}
	return normalize(SourceLinkedInPosts, guessTitle(r.Text), company, "", r.Text, r.URL, nil, rules)
}

// RawTweet is a hiring tweet from the X/Twitter v2 search API.
type RawTweet struct {
	ID       string
	Author   string
	Text     string
	PostedAt *time.Time
}

func (r RawTweet) RawSource() Source { return SourceTwitter }

func (r RawTweet) Normalize(rules CategoryTable) (*Opportunity, error) {
	url := fmt.Sprintf("https://x.com/i/status/%s", r.ID)
	return normalize(SourceTwitter, guessTitle(r.Text), r.Author, "", r.Text, url, r.PostedAt, rules)
}

func normalize(src Source, title, company, location, description, url string, postedAt *time.Time, rules CategoryTable) (*Opportunity, error) {
	company = strings.TrimSpace(company)
	description = strings.TrimSpace(description)
	title = strings.TrimSpace(title)

	if company == "" {
		return nil, &MalformedRecordError{Source: src, Reason: "empty company name"}
	}
	if description == "" {
		return nil, &MalformedRecordError{Source: src, Reason: "empty description"}
	}
	if title == "" {
		title = "Job Opening"
	}

	discovered := time.Now().UTC()
	if postedAt != nil && !postedAt.IsZero() {
		discovered = postedAt.UTC()
	}

	return &Opportunity{
		Company:      company,
		Title:        title,
		Description:  description,
		Location:     strings.TrimSpace(location),
		Source:       src,
		URL:          strings.TrimSpace(url),
		DiscoveredAt: discovered,
		Category:     rules.Classify(title, description),
	}, nil
}

var titleHints = []string{
	"full stack developer", "full-stack developer", "fullstack developer",
	"frontend developer", "front-end developer", "backend developer",
	"back-end developer", "react developer", "react native developer",
	"node.js developer", "software engineer", "software developer",
	"web developer", "mobile developer",
}

// guessTitle extracts a likely role title from free-form post text.
func guessTitle(text string) string {
	lower := strings.ToLower(text)
	for _, hint := range titleHints {
		if strings.Contains(lower, hint) {
			return titleCase(hint)
		}
	}
	return "Developer"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
