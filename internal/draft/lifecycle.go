package draft

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Store is the persistence surface the manager needs. Implemented by the
// sqlite store.
type Store interface {
	Draft(ctx context.Context, id int64) (*Draft, error)
	Drafts(ctx context.Context, status Status) ([]*Draft, error)
	TransitionDraft(ctx context.Context, id int64, from []Status, to Status) error
	UpdateDraftContent(ctx context.Context, id int64, subject, body string) error
	MarkDraftSent(ctx context.Context, id int64) error
	SentToCompany(ctx context.Context, companyKey string) (bool, error)
}

// Transport delivers one approved outreach email.
type Transport interface {
	Send(ctx context.Context, d *Draft) error
}

// Manager owns draft state transitions. Sends are serialized per company
// with a file lock so that two processes sharing the database cannot both
// reach the transport for the same company.
type Manager struct {
	store     Store
	transport Transport
	lockDir   string
	logger    *zap.Logger
}

func NewManager(store Store, transport Transport, lockDir string, logger *zap.Logger) *Manager {
	return &Manager{store: store, transport: transport, lockDir: lockDir, logger: logger}
}

// Approve marks a pending draft ready to send. Approving an approved draft
// is a no-op.
func (m *Manager) Approve(ctx context.Context, id int64) error {
	return m.store.TransitionDraft(ctx, id, []Status{StatusPending, StatusApproved}, StatusApproved)
}

// ApproveAll approves every pending draft and returns how many changed.
func (m *Manager) ApproveAll(ctx context.Context) (int, error) {
	pending, err := m.store.Drafts(ctx, StatusPending)
	if err != nil {
		return 0, err
	}
	for i, d := range pending {
		if err := m.Approve(ctx, d.ID); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// Discard retires a draft that should never be sent.
func (m *Manager) Discard(ctx context.Context, id int64) error {
	return m.store.TransitionDraft(ctx, id, []Status{StatusPending, StatusApproved}, StatusDiscarded)
}

// Edit replaces subject and body on a draft that has not reached a terminal
// state.
func (m *Manager) Edit(ctx context.Context, id int64, subject, body string) error {
	return m.store.UpdateDraftContent(ctx, id, subject, body)
}

// Send delivers one draft. With bypassReview a pending draft may be sent
// directly; otherwise only approved drafts qualify. On transport failure the
// draft keeps its state so the send can be retried.
func (m *Manager) Send(ctx context.Context, id int64, bypassReview bool) error {
	d, err := m.store.Draft(ctx, id)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return &TerminalStateError{ID: id, Status: d.Status}
	}
	if d.Status == StatusPending && !bypassReview {
		return fmt.Errorf("draft %d is pending, approve it first", id)
	}

	unlock, err := m.lockCompany(ctx, d.CompanyKey)
	if err != nil {
		return err
	}
	defer unlock()

	sent, err := m.store.SentToCompany(ctx, d.CompanyKey)
	if err != nil {
		return err
	}
	if sent {
		return &DuplicateCompanyOutreachError{CompanyKey: d.CompanyKey}
	}

	if err := m.transport.Send(ctx, d); err != nil {
		m.logger.Warn("transport failed, draft unchanged",
			zap.Int64("id", id),
			zap.String("company", d.Company),
			zap.Error(err))
		return fmt.Errorf("send draft %d: %w", id, err)
	}

	if err := m.store.MarkDraftSent(ctx, id); err != nil {
		// The mail left but the commit lost the race or failed. Surface it
		// loudly rather than risk a silent resend.
		m.logger.Error("sent but could not record", zap.Int64("id", id), zap.Error(err))
		return err
	}

	m.logger.Info("outreach sent",
		zap.Int64("id", id),
		zap.String("company", d.Company),
		zap.String("to", d.ToEmail))
	return nil
}

// lockCompany takes an exclusive advisory lock for the company, blocking
// until it is held or ctx expires.
func (m *Manager) lockCompany(ctx context.Context, companyKey string) (func(), error) {
	if err := os.MkdirAll(m.lockDir, 0o755); err != nil {
		return nil, err
	}
	// Company keys may carry path separators; they must not escape lockDir.
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, companyKey)
	lock := flock.New(filepath.Join(m.lockDir, name+".lock"))

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock company %q: %w", companyKey, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock company %q: not acquired", companyKey)
	}
	return func() { _ = lock.Unlock() }, nil
}
