package job

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies where a listing was discovered.
type Source string

const (
	SourceLinkedInPosts Source = "linkedin-posts"
	SourceLinkedInJobs  Source = "linkedin-jobs"
	SourceTwitter       Source = "twitter"
)

// Opportunity is a normalized job posting from any source. It is created once
// by normalization and never mutated afterwards, except for the contact and
// unreachable fields which the email resolver sets exactly once.
type Opportunity struct {
	Company      string
	Title        string
	Description  string
	Location     string
	Source       Source
	URL          string
	DiscoveredAt time.Time
	Category     RoleCategory

	// Contact is attached by the email resolver; nil until resolution ran.
	Contact *ContactEmail
	// Unreachable is set when every resolution strategy came up empty.
	Unreachable bool
}

// CompanyKey returns the normalized company name used to bucket opportunities
// and to enforce the one-outreach-per-company rule.
func (o *Opportunity) CompanyKey() string {
	return CompanyKey(o.Company)
}

// SightingKey uniquely identifies a raw sighting of this posting.
func (o *Opportunity) SightingKey() string {
	return fmt.Sprintf("%s|%s|%s", o.CompanyKey(), o.Source, o.URL)
}

// CompanyKey lowercases and collapses whitespace in a company name.
func CompanyKey(company string) string {
	return strings.ToLower(strings.Join(strings.Fields(company), " "))
}

// ResolutionStrategy names the strategy that produced a contact email.
type ResolutionStrategy string

const (
	StrategyDescriptionScan ResolutionStrategy = "description-scan"
	StrategyCompanyWebsite  ResolutionStrategy = "company-website"
	StrategyHRPattern       ResolutionStrategy = "hr-pattern"
)

// ConfidenceTier ranks how strongly a resolved email is believed correct.
// Lower values are better.
type ConfidenceTier int

const (
	TierExplicitInPosting ConfidenceTier = iota
	TierCompanyDomain
	TierGenericPattern
)

func (t ConfidenceTier) String() string {
	switch t {
	case TierExplicitInPosting:
		return "explicit-in-posting"
	case TierCompanyDomain:
		return "company-domain-pattern"
	case TierGenericPattern:
		return "generic-hr-pattern"
	default:
		return "unknown"
	}
}

// ContactEmail is a resolved outreach address. Immutable once attached.
type ContactEmail struct {
	Address  string
	Strategy ResolutionStrategy
	Tier     ConfidenceTier
}
