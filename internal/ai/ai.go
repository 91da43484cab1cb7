package ai

import (
	"context"

	"github.com/reacher-cli/reacher/internal/job"
)

// Candidate is the person applying, fed into the prompt and the fallback
// template.
type Candidate struct {
	Name       string
	Email      string
	Phone      string
	ResumeText string
}

// EmailContent is a composed outreach email. Fallback marks content produced
// from the static template after a model failure.
type EmailContent struct {
	Subject  string
	Body     string
	Fallback bool
	Raw      string
}

// Drafter composes an application email for one opportunity.
type Drafter interface {
	Compose(ctx context.Context, opp *job.Opportunity, candidate Candidate) (*EmailContent, error)
}
