package draft

import (
	"fmt"
	"time"

	"github.com/reacher-cli/reacher/internal/job"
)

// Status is the lifecycle state of an outreach draft.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSent      Status = "sent"
	StatusDiscarded Status = "discarded"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusDiscarded
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusSent, StatusDiscarded:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown draft status %q", s)
}

// Draft is one prepared outreach email, tied to the opportunity it was
// generated for.
type Draft struct {
	ID         int64
	CompanyKey string
	Company    string
	JobTitle   string
	JobURL     string
	Source     job.Source
	ToEmail    string
	EmailTier  job.ConfidenceTier
	Subject    string
	Body       string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	SentAt     *time.Time
}

// TerminalStateError is returned when a transition is attempted on a draft
// already in a terminal state.
type TerminalStateError struct {
	ID     int64
	Status Status
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("draft %d is %s and cannot change state", e.ID, e.Status)
}

// DuplicateCompanyOutreachError is returned when a send would create a
// second sent outreach for the same company.
type DuplicateCompanyOutreachError struct {
	CompanyKey string
}

func (e *DuplicateCompanyOutreachError) Error() string {
	return fmt.Sprintf("an outreach was already sent to %q", e.CompanyKey)
}

// NotFoundError is returned when a draft ID does not exist.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("draft %d not found", e.ID)
}
