package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reacher-cli/reacher/internal/ai"
	"github.com/reacher-cli/reacher/internal/draft"
	"github.com/reacher-cli/reacher/internal/emailfind"
	"github.com/reacher-cli/reacher/internal/job"
	"github.com/reacher-cli/reacher/internal/sources"
	"github.com/reacher-cli/reacher/internal/store"
	"go.uber.org/zap"
)

// memStore backs both the agent and the draft manager in tests.
type memStore struct {
	mu          sync.Mutex
	sightings   map[string]*job.Opportunity
	unreachable map[string]bool
	drafts      map[int64]*draft.Draft
	nextID      int64
}

func newMemStore() *memStore {
	return &memStore{
		sightings:   make(map[string]*job.Opportunity),
		unreachable: make(map[string]bool),
		drafts:      make(map[int64]*draft.Draft),
	}
}

func sightingKey(companyKey string, source job.Source, url string) string {
	return companyKey + "|" + string(source) + "|" + url
}

func (m *memStore) SeenSighting(_ context.Context, companyKey string, source job.Source, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sightings[sightingKey(companyKey, source, url)]
	return ok, nil
}

func (m *memStore) InsertOpportunity(_ context.Context, opp *job.Opportunity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sightingKey(opp.CompanyKey(), opp.Source, opp.URL)
	if _, ok := m.sightings[key]; ok {
		return false, nil
	}
	m.sightings[key] = opp
	return true, nil
}

func (m *memStore) UndraftedOpportunities(_ context.Context) (map[string][]*job.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drafted := make(map[string]bool)
	for _, d := range m.drafts {
		if d.Status != draft.StatusDiscarded {
			drafted[d.CompanyKey] = true
		}
	}

	out := make(map[string][]*job.Opportunity)
	for key, opp := range m.sightings {
		if drafted[opp.CompanyKey()] || m.unreachable[key] {
			continue
		}
		out[opp.CompanyKey()] = append(out[opp.CompanyKey()], opp)
	}
	return out, nil
}

func (m *memStore) AttachContact(_ context.Context, opp *job.Opportunity, contact *job.ContactEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.sightings[sightingKey(opp.CompanyKey(), opp.Source, opp.URL)]; ok {
		stored.Contact = contact
	}
	return nil
}

func (m *memStore) MarkUnreachable(_ context.Context, opp *job.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable[sightingKey(opp.CompanyKey(), opp.Source, opp.URL)] = true
	return nil
}

func (m *memStore) Drafts(_ context.Context, status draft.Status) ([]*draft.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*draft.Draft
	for id := m.nextID; id >= 1; id-- {
		d, ok := m.drafts[id]
		if !ok {
			continue
		}
		if status == "" || d.Status == status {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) SaveDraft(_ context.Context, d *draft.Draft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *d
	cp.ID = m.nextID
	cp.Status = draft.StatusPending
	m.drafts[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) Draft(_ context.Context, id int64) (*draft.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, &draft.NotFoundError{ID: id}
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) TransitionDraft(_ context.Context, id int64, from []draft.Status, to draft.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return &draft.NotFoundError{ID: id}
	}
	for _, s := range from {
		if d.Status == s {
			d.Status = to
			return nil
		}
	}
	return &draft.TerminalStateError{ID: id, Status: d.Status}
}

func (m *memStore) UpdateDraftContent(_ context.Context, id int64, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return &draft.NotFoundError{ID: id}
	}
	if d.Status.Terminal() {
		return &draft.TerminalStateError{ID: id, Status: d.Status}
	}
	d.Subject, d.Body = subject, body
	return nil
}

func (m *memStore) MarkDraftSent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.drafts[id]
	for _, other := range m.drafts {
		if other.CompanyKey == d.CompanyKey && other.Status == draft.StatusSent && other.ID != id {
			return &draft.DuplicateCompanyOutreachError{CompanyKey: d.CompanyKey}
		}
	}
	if d.Status.Terminal() {
		return &draft.TerminalStateError{ID: id, Status: d.Status}
	}
	d.Status = draft.StatusSent
	now := time.Now().UTC()
	d.SentAt = &now
	return nil
}

func (m *memStore) SentToCompany(_ context.Context, companyKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.drafts {
		if d.CompanyKey == companyKey && d.Status == draft.StatusSent {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SentSince(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.drafts {
		if d.Status == draft.StatusSent && d.SentAt != nil && !d.SentAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Stats(_ context.Context) (*store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &store.Stats{ByStatus: make(map[draft.Status]int)}
	st.Sightings = len(m.sightings)
	companies := make(map[string]bool)
	for _, opp := range m.sightings {
		companies[opp.CompanyKey()] = true
	}
	st.Companies = len(companies)
	for _, d := range m.drafts {
		st.ByStatus[d.Status]++
	}
	return st, nil
}

type fakeScraper struct {
	source job.Source
	raws   []job.Raw
	err    error
}

func (f *fakeScraper) Name() job.Source { return f.source }

func (f *fakeScraper) Fetch(_ context.Context, _ sources.SearchParams) ([]job.Raw, error) {
	return f.raws, f.err
}

type fixedContactStrategy struct {
	contact *job.ContactEmail
}

func (s *fixedContactStrategy) Name() job.ResolutionStrategy { return job.StrategyDescriptionScan }

func (s *fixedContactStrategy) Resolve(_ context.Context, _ *job.Opportunity) (*job.ContactEmail, error) {
	return s.contact, nil
}

type fakeDrafter struct {
	composed int
}

func (f *fakeDrafter) Compose(_ context.Context, opp *job.Opportunity, _ ai.Candidate) (*ai.EmailContent, error) {
	f.composed++
	return &ai.EmailContent{
		Subject: "Application for " + opp.Title,
		Body:    "Hello " + opp.Company,
	}, nil
}

type countingTransport struct {
	mu   sync.Mutex
	sent int
}

func (t *countingTransport) Send(_ context.Context, _ *draft.Draft) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent++
	return nil
}

func testAgent(t *testing.T, st *memStore, scrapers []sources.Scraper, strategy emailfind.Strategy, limits Limits) (*Agent, *countingTransport, *fakeDrafter) {
	t.Helper()
	logger := zap.NewNop()
	transport := &countingTransport{}
	drafter := &fakeDrafter{}
	a := New(Options{
		Scrapers:  scrapers,
		Resolver:  emailfind.New(logger, strategy),
		Drafter:   drafter,
		Candidate: ai.Candidate{Name: "Jordan Doe", Email: "jordan@example.org"},
		Manager:   draft.NewManager(st, transport, t.TempDir(), logger),
		Store:     st,
		Rules:     job.DefaultCategoryTable(),
		Limits:    limits,
		Logger:    logger,
	})
	return a, transport, drafter
}

func TestScoutPersistsAndDedups(t *testing.T) {
	st := newMemStore()
	posted := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	scrapers := []sources.Scraper{
		&fakeScraper{source: job.SourceLinkedInJobs, raws: []job.Raw{
			job.RawJobCard{Title: "Backend Engineer", Company: "Acme", Description: "Go.", URL: "https://example.org/1", PostedAt: &posted},
			job.RawJobCard{Title: "Backend Engineer", Company: "Acme", Description: "Go.", URL: "https://example.org/1", PostedAt: &posted},
			job.RawJobCard{Title: "", Company: "", Description: "", URL: ""},
		}},
		&fakeScraper{source: job.SourceTwitter, err: errors.New("rate limited")},
	}

	a, _, _ := testAgent(t, st, scrapers, &fixedContactStrategy{}, Limits{})
	summary, err := a.Scout(context.Background(), sources.SearchParams{Keywords: []string{"go"}})
	if err != nil {
		t.Fatalf("Scout: %v", err)
	}

	if summary.Found != 3 {
		t.Errorf("Found = %d, want 3", summary.Found)
	}
	if summary.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", summary.Malformed)
	}
	if summary.New != 1 {
		t.Errorf("New = %d, want 1 (in-batch duplicate dropped)", summary.New)
	}

	// A second scout sees everything as already persisted.
	summary, err = a.Scout(context.Background(), sources.SearchParams{Keywords: []string{"go"}})
	if err != nil {
		t.Fatalf("second Scout: %v", err)
	}
	if summary.New != 0 {
		t.Errorf("New = %d on re-scout, want 0", summary.New)
	}
}

func TestDraftPendingPicksBestAndMarksUnreachable(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	early := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)

	rules := job.DefaultCategoryTable()
	insert := func(company, title, url string, at time.Time) {
		opp, err := job.RawJobCard{
			Title: title, Company: company, Description: "Work.",
			URL: url, PostedAt: &at,
		}.Normalize(rules)
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if _, err := st.InsertOpportunity(ctx, opp); err != nil {
			t.Fatal(err)
		}
	}

	// Acme has a full-stack role first and a later TypeScript role; the
	// TypeScript one must win.
	insert("Acme", "Full Stack Developer", "https://example.org/1", early)
	insert("Acme", "TypeScript Engineer", "https://example.org/2", late)
	insert("Globex", "Backend Engineer", "https://example.org/3", early)

	contact := &job.ContactEmail{
		Address:  "hiring@acme.com",
		Strategy: job.StrategyDescriptionScan,
		Tier:     job.TierExplicitInPosting,
	}
	// Globex never resolves: the strategy only answers for Acme.
	strategy := &conditionalStrategy{company: "Acme", contact: contact}

	a, _, drafter := testAgent(t, st, nil, strategy, Limits{})
	summary, err := a.DraftPending(ctx)
	if err != nil {
		t.Fatalf("DraftPending: %v", err)
	}

	if summary.Companies != 2 {
		t.Errorf("Companies = %d, want 2", summary.Companies)
	}
	if summary.Drafted != 1 {
		t.Errorf("Drafted = %d, want 1", summary.Drafted)
	}
	if summary.Unreachable != 1 {
		t.Errorf("Unreachable = %d, want 1", summary.Unreachable)
	}
	if drafter.composed != 1 {
		t.Errorf("drafter invoked %d times, want 1", drafter.composed)
	}

	drafts, _ := st.Drafts(ctx, draft.StatusPending)
	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1", len(drafts))
	}
	if drafts[0].JobTitle != "TypeScript Engineer" {
		t.Errorf("drafted %q, want the TypeScript role", drafts[0].JobTitle)
	}
	if !st.unreachable[sightingKey("globex", job.SourceLinkedInJobs, "https://example.org/3")] {
		t.Error("globex sighting not marked unreachable")
	}

	// A second pass finds nothing left to draft.
	summary, err = a.DraftPending(ctx)
	if err != nil {
		t.Fatalf("second DraftPending: %v", err)
	}
	if summary.Companies != 0 {
		t.Errorf("Companies = %d on second pass, want 0", summary.Companies)
	}
}

type conditionalStrategy struct {
	company string
	contact *job.ContactEmail
}

func (s *conditionalStrategy) Name() job.ResolutionStrategy { return job.StrategyDescriptionScan }

func (s *conditionalStrategy) Resolve(_ context.Context, opp *job.Opportunity) (*job.ContactEmail, error) {
	if opp.Company == s.company {
		return s.contact, nil
	}
	return nil, nil
}

type urlStrategy struct {
	url     string
	contact *job.ContactEmail
}

func (s *urlStrategy) Name() job.ResolutionStrategy { return job.StrategyDescriptionScan }

func (s *urlStrategy) Resolve(_ context.Context, opp *job.Opportunity) (*job.ContactEmail, error) {
	if opp.URL == s.url {
		return s.contact, nil
	}
	return nil, nil
}

func TestDraftPendingFallsBackToSiblingCandidate(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	rules := job.DefaultCategoryTable()

	// The TypeScript role ranks first but has no discoverable address; the
	// backend role carries one in its posting.
	for _, tc := range []struct{ title, url string }{
		{"TypeScript Engineer", "https://example.org/ts"},
		{"Backend Engineer", "https://example.org/backend"},
	} {
		opp, err := job.RawJobCard{
			Title: tc.title, Company: "Acme", Description: "Work.",
			URL: tc.url, PostedAt: &at,
		}.Normalize(rules)
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if _, err := st.InsertOpportunity(ctx, opp); err != nil {
			t.Fatal(err)
		}
	}

	strategy := &urlStrategy{
		url: "https://example.org/backend",
		contact: &job.ContactEmail{
			Address:  "hiring@acme.com",
			Strategy: job.StrategyDescriptionScan,
			Tier:     job.TierExplicitInPosting,
		},
	}

	a, _, _ := testAgent(t, st, nil, strategy, Limits{})
	summary, err := a.DraftPending(ctx)
	if err != nil {
		t.Fatalf("DraftPending: %v", err)
	}

	if summary.Drafted != 1 {
		t.Errorf("Drafted = %d, want 1", summary.Drafted)
	}
	if summary.Unreachable != 0 {
		t.Errorf("Unreachable = %d, want 0 (a sibling resolved)", summary.Unreachable)
	}

	drafts, _ := st.Drafts(ctx, draft.StatusPending)
	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1", len(drafts))
	}
	if drafts[0].JobTitle != "Backend Engineer" {
		t.Errorf("drafted %q, want the backend role", drafts[0].JobTitle)
	}
	if drafts[0].ToEmail != "hiring@acme.com" {
		t.Errorf("recipient = %q", drafts[0].ToEmail)
	}

	// Only the exhausted sighting is flagged, not the whole company.
	if !st.unreachable[sightingKey("acme", job.SourceLinkedInJobs, "https://example.org/ts")] {
		t.Error("exhausted sighting not marked unreachable")
	}
	if st.unreachable[sightingKey("acme", job.SourceLinkedInJobs, "https://example.org/backend")] {
		t.Error("resolved sighting wrongly marked unreachable")
	}
}

func TestDraftPendingRegeneratesAfterDiscard(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	opp, err := job.RawJobCard{
		Title: "TypeScript Engineer", Company: "Acme", Description: "Work.",
		URL: "https://example.org/1", PostedAt: &at,
	}.Normalize(job.DefaultCategoryTable())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if _, err := st.InsertOpportunity(ctx, opp); err != nil {
		t.Fatal(err)
	}

	contact := &job.ContactEmail{
		Address:  "hiring@acme.com",
		Strategy: job.StrategyDescriptionScan,
		Tier:     job.TierExplicitInPosting,
	}
	a, _, _ := testAgent(t, st, nil, &fixedContactStrategy{contact: contact}, Limits{})

	summary, err := a.DraftPending(ctx)
	if err != nil {
		t.Fatalf("DraftPending: %v", err)
	}
	if summary.Drafted != 1 {
		t.Fatalf("Drafted = %d, want 1", summary.Drafted)
	}

	drafts, _ := st.Drafts(ctx, draft.StatusPending)
	if err := st.TransitionDraft(ctx, drafts[0].ID, []draft.Status{draft.StatusPending}, draft.StatusDiscarded); err != nil {
		t.Fatal(err)
	}

	// Discarding frees the company for a fresh draft.
	summary, err = a.DraftPending(ctx)
	if err != nil {
		t.Fatalf("second DraftPending: %v", err)
	}
	if summary.Drafted != 1 {
		t.Errorf("Drafted = %d after discard, want 1", summary.Drafted)
	}
}

func TestSendApprovedHonorsLimits(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	for _, company := range []string{"acme", "globex", "initech"} {
		id, err := st.SaveDraft(ctx, &draft.Draft{
			CompanyKey: company, Company: company,
			ToEmail: "careers@" + company + ".com",
			Subject: "Application", Body: "Hello.",
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := st.TransitionDraft(ctx, id, []draft.Status{draft.StatusPending}, draft.StatusApproved); err != nil {
			t.Fatal(err)
		}
	}

	a, transport, _ := testAgent(t, st, nil, &fixedContactStrategy{}, Limits{PerRun: 2})
	summary, err := a.SendApproved(ctx, false)
	if err != nil {
		t.Fatalf("SendApproved: %v", err)
	}

	if summary.Sent != 2 {
		t.Errorf("Sent = %d, want 2 (per-run cap)", summary.Sent)
	}
	if transport.sent != 2 {
		t.Errorf("transport reached %d times, want 2", transport.sent)
	}

	// Remaining draft goes out on the next pass.
	summary, err = a.SendApproved(ctx, false)
	if err != nil {
		t.Fatalf("second SendApproved: %v", err)
	}
	if summary.Sent != 1 {
		t.Errorf("Sent = %d on second pass, want 1", summary.Sent)
	}
}

func TestSendApprovedDailyCap(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	// One already sent today.
	id, _ := st.SaveDraft(ctx, &draft.Draft{CompanyKey: "acme", Company: "acme", ToEmail: "careers@acme.com"})
	if err := st.MarkDraftSent(ctx, id); err != nil {
		t.Fatal(err)
	}

	id2, _ := st.SaveDraft(ctx, &draft.Draft{CompanyKey: "globex", Company: "globex", ToEmail: "careers@globex.com"})
	if err := st.TransitionDraft(ctx, id2, []draft.Status{draft.StatusPending}, draft.StatusApproved); err != nil {
		t.Fatal(err)
	}

	a, transport, _ := testAgent(t, st, nil, &fixedContactStrategy{}, Limits{PerDay: 1})
	summary, err := a.SendApproved(ctx, false)
	if err != nil {
		t.Fatalf("SendApproved: %v", err)
	}
	if summary.Sent != 0 {
		t.Errorf("Sent = %d with exhausted daily cap, want 0", summary.Sent)
	}
	if transport.sent != 0 {
		t.Errorf("transport reached %d times, want 0", transport.sent)
	}
}

func TestSendApprovedSkipsCompanyConflicts(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	for range [2]int{} {
		id, _ := st.SaveDraft(ctx, &draft.Draft{CompanyKey: "acme", Company: "acme", ToEmail: "careers@acme.com"})
		if err := st.TransitionDraft(ctx, id, []draft.Status{draft.StatusPending}, draft.StatusApproved); err != nil {
			t.Fatal(err)
		}
	}

	a, transport, _ := testAgent(t, st, nil, &fixedContactStrategy{}, Limits{})
	summary, err := a.SendApproved(ctx, false)
	if err != nil {
		t.Fatalf("SendApproved: %v", err)
	}
	if summary.Sent != 1 || summary.Skipped != 1 {
		t.Errorf("Sent = %d, Skipped = %d, want 1 and 1", summary.Sent, summary.Skipped)
	}
	if transport.sent != 1 {
		t.Errorf("transport reached %d times, want 1", transport.sent)
	}
}
