// Package sources holds the per-site scrapers that discover job openings.
package sources

import (
	"context"

	"github.com/reacher-cli/reacher/internal/job"
)

// SearchParams are the shared search preferences every scraper receives.
type SearchParams struct {
	Keywords        []string
	Locations       []string
	ExperienceLevel string
	MaxPerQuery     int
}

// Scraper fetches raw listings from one site. A scraper failure is isolated
// by the caller; other sources keep running.
type Scraper interface {
	Name() job.Source
	Fetch(ctx context.Context, params SearchParams) ([]job.Raw, error)
}
