package draft

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeStore struct {
	mu     sync.Mutex
	drafts map[int64]*Draft
}

func newFakeStore(drafts ...*Draft) *fakeStore {
	f := &fakeStore{drafts: make(map[int64]*Draft)}
	for _, d := range drafts {
		cp := *d
		f.drafts[d.ID] = &cp
	}
	return f
}

func (f *fakeStore) Draft(_ context.Context, id int64) (*Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) Drafts(_ context.Context, status Status) ([]*Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Draft
	for _, d := range f.drafts {
		if status == "" || d.Status == status {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) TransitionDraft(_ context.Context, id int64, from []Status, to Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	for _, s := range from {
		if d.Status == s {
			d.Status = to
			return nil
		}
	}
	return &TerminalStateError{ID: id, Status: d.Status}
}

func (f *fakeStore) UpdateDraftContent(_ context.Context, id int64, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if d.Status.Terminal() {
		return &TerminalStateError{ID: id, Status: d.Status}
	}
	d.Subject, d.Body = subject, body
	return nil
}

func (f *fakeStore) MarkDraftSent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.drafts[id]
	for _, other := range f.drafts {
		if other.CompanyKey == d.CompanyKey && other.Status == StatusSent && other.ID != id {
			return &DuplicateCompanyOutreachError{CompanyKey: d.CompanyKey}
		}
	}
	if d.Status.Terminal() {
		return &TerminalStateError{ID: id, Status: d.Status}
	}
	d.Status = StatusSent
	return nil
}

func (f *fakeStore) SentToCompany(_ context.Context, companyKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.drafts {
		if d.CompanyKey == companyKey && d.Status == StatusSent {
			return true, nil
		}
	}
	return false, nil
}

type fakeTransport struct {
	mu    sync.Mutex
	sent  []int64
	fail  bool
	delay chan struct{}
}

func (t *fakeTransport) Send(_ context.Context, d *Draft) error {
	if t.delay != nil {
		<-t.delay
	}
	if t.fail {
		return errors.New("smtp: connection refused")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, d.ID)
	return nil
}

func newManager(t *testing.T, store Store, transport Transport) *Manager {
	t.Helper()
	return NewManager(store, transport, t.TempDir(), zap.NewNop())
}

func TestApproveIdempotent(t *testing.T) {
	store := newFakeStore(&Draft{ID: 1, CompanyKey: "acme", Status: StatusPending})
	m := newManager(t, store, &fakeTransport{})
	ctx := context.Background()

	if err := m.Approve(ctx, 1); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if err := m.Approve(ctx, 1); err != nil {
		t.Fatalf("second approve should be a no-op: %v", err)
	}

	d, _ := store.Draft(ctx, 1)
	if d.Status != StatusApproved {
		t.Errorf("status = %s, want approved", d.Status)
	}
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	store := newFakeStore(
		&Draft{ID: 1, CompanyKey: "acme", Status: StatusSent},
		&Draft{ID: 2, CompanyKey: "globex", Status: StatusDiscarded},
	)
	m := newManager(t, store, &fakeTransport{})
	ctx := context.Background()

	var terminal *TerminalStateError
	for _, id := range []int64{1, 2} {
		if err := m.Approve(ctx, id); !errors.As(err, &terminal) {
			t.Errorf("Approve(%d) = %v, want TerminalStateError", id, err)
		}
		if err := m.Discard(ctx, id); !errors.As(err, &terminal) {
			t.Errorf("Discard(%d) = %v, want TerminalStateError", id, err)
		}
		if err := m.Send(ctx, id, true); !errors.As(err, &terminal) {
			t.Errorf("Send(%d) = %v, want TerminalStateError", id, err)
		}
		if err := m.Edit(ctx, id, "s", "b"); !errors.As(err, &terminal) {
			t.Errorf("Edit(%d) = %v, want TerminalStateError", id, err)
		}
	}
}

func TestSendRequiresApproval(t *testing.T) {
	store := newFakeStore(&Draft{ID: 1, CompanyKey: "acme", Status: StatusPending})
	transport := &fakeTransport{}
	m := newManager(t, store, transport)
	ctx := context.Background()

	if err := m.Send(ctx, 1, false); err == nil {
		t.Fatal("pending draft sent without approval or bypass")
	}
	if len(transport.sent) != 0 {
		t.Fatal("transport reached for an unapproved draft")
	}

	if err := m.Send(ctx, 1, true); err != nil {
		t.Fatalf("bypass send: %v", err)
	}
	d, _ := store.Draft(ctx, 1)
	if d.Status != StatusSent {
		t.Errorf("status = %s, want sent", d.Status)
	}
}

func TestTransportFailureKeepsDraftApproved(t *testing.T) {
	store := newFakeStore(&Draft{ID: 1, CompanyKey: "acme", Status: StatusApproved})
	m := newManager(t, store, &fakeTransport{fail: true})
	ctx := context.Background()

	if err := m.Send(ctx, 1, false); err == nil {
		t.Fatal("expected transport error")
	}
	d, _ := store.Draft(ctx, 1)
	if d.Status != StatusApproved {
		t.Errorf("status = %s, want approved after transport failure", d.Status)
	}
}

func TestSecondSendToCompanyRejected(t *testing.T) {
	store := newFakeStore(
		&Draft{ID: 1, CompanyKey: "acme", Status: StatusApproved},
		&Draft{ID: 2, CompanyKey: "acme", Status: StatusApproved},
	)
	transport := &fakeTransport{}
	m := newManager(t, store, transport)
	ctx := context.Background()

	if err := m.Send(ctx, 1, false); err != nil {
		t.Fatalf("first send: %v", err)
	}

	var dup *DuplicateCompanyOutreachError
	if err := m.Send(ctx, 2, false); !errors.As(err, &dup) {
		t.Fatalf("second send = %v, want DuplicateCompanyOutreachError", err)
	}
	if len(transport.sent) != 1 {
		t.Errorf("transport invoked %d times, want 1", len(transport.sent))
	}
}

func TestConcurrentSendsAtMostOne(t *testing.T) {
	store := newFakeStore(
		&Draft{ID: 1, CompanyKey: "acme", Status: StatusApproved},
		&Draft{ID: 2, CompanyKey: "acme", Status: StatusApproved},
	)
	transport := &fakeTransport{}
	m := newManager(t, store, transport)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{1, 2} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			errs[i] = m.Send(context.Background(), id, false)
		}(i, id)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		var d *DuplicateCompanyOutreachError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &d):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("got %d successes and %d duplicates, want exactly one of each", ok, dup)
	}
	if len(transport.sent) != 1 {
		t.Errorf("transport invoked %d times, want 1", len(transport.sent))
	}
}

func TestApproveAll(t *testing.T) {
	store := newFakeStore(
		&Draft{ID: 1, CompanyKey: "acme", Status: StatusPending},
		&Draft{ID: 2, CompanyKey: "globex", Status: StatusPending},
		&Draft{ID: 3, CompanyKey: "initech", Status: StatusDiscarded},
	)
	m := newManager(t, store, &fakeTransport{})

	n, err := m.ApproveAll(context.Background())
	if err != nil {
		t.Fatalf("ApproveAll: %v", err)
	}
	if n != 2 {
		t.Errorf("approved %d, want 2", n)
	}
	d, _ := store.Draft(context.Background(), 3)
	if d.Status != StatusDiscarded {
		t.Errorf("discarded draft touched: %s", d.Status)
	}
}
