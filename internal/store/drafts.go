package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/reacher-cli/reacher/internal/draft"
	"github.com/reacher-cli/reacher/internal/job"
)

// SaveDraft inserts a freshly generated draft in pending state and returns
// its ID.
func (s *Store) SaveDraft(ctx context.Context, d *draft.Draft) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
INSERT INTO drafts
  (company_key, company, job_title, job_url, source, to_email, email_tier,
   subject, body, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		d.CompanyKey, d.Company, d.JobTitle, d.JobURL, string(d.Source),
		d.ToEmail, int(d.EmailTier), d.Subject, d.Body, string(draft.StatusPending),
		now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Draft loads one draft by ID.
func (s *Store) Draft(ctx context.Context, id int64) (*draft.Draft, error) {
	row := s.db.QueryRowContext(ctx, draftSelect+`WHERE id = ?;`, id)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, &draft.NotFoundError{ID: id}
	}
	return d, err
}

// Drafts lists drafts, optionally filtered by status, newest first.
func (s *Store) Drafts(ctx context.Context, status draft.Status) ([]*draft.Draft, error) {
	query := draftSelect + `ORDER BY id DESC;`
	args := []any{}
	if status != "" {
		query = draftSelect + `WHERE status = ? ORDER BY id DESC;`
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*draft.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TransitionDraft moves a draft from one of the allowed source states into
// to. The state check rides inside the UPDATE, so a concurrent transition
// cannot slip through.
func (s *Store) TransitionDraft(ctx context.Context, id int64, from []draft.Status, to draft.Status) error {
	args := []any{string(to), time.Now().UTC().Format(time.RFC3339), id}
	placeholders := ""
	for i, f := range from {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(f))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders+`);`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.transitionFailure(ctx, id)
	}
	return nil
}

// UpdateDraftContent rewrites subject and body while the draft is still
// editable.
func (s *Store) UpdateDraftContent(ctx context.Context, id int64, subject, body string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE drafts SET subject = ?, body = ?, updated_at = ?
WHERE id = ? AND status IN (?, ?);`,
		subject, body, time.Now().UTC().Format(time.RFC3339), id,
		string(draft.StatusPending), string(draft.StatusApproved))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.transitionFailure(ctx, id)
	}
	return nil
}

// MarkDraftSent commits a successful send. The UPDATE carries both guards:
// the draft must still be sendable, and no other draft for the same company
// may already be sent.
func (s *Store) MarkDraftSent(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
UPDATE drafts SET status = ?, sent_at = ?, updated_at = ?
WHERE id = ?
  AND status IN (?, ?)
  AND NOT EXISTS (
    SELECT 1 FROM drafts other
    WHERE other.company_key = drafts.company_key
      AND other.status = ?
      AND other.id != drafts.id
  );`,
		string(draft.StatusSent), now, now, id,
		string(draft.StatusPending), string(draft.StatusApproved),
		string(draft.StatusSent))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.sendFailure(ctx, id)
	}
	return nil
}

// SentToCompany reports whether any sent draft exists for the company.
func (s *Store) SentToCompany(ctx context.Context, companyKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM drafts WHERE company_key = ? AND status = ? LIMIT 1;`,
		companyKey, string(draft.StatusSent),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SentSince counts drafts sent at or after the cutoff, for daily limits.
func (s *Store) SentSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drafts WHERE status = ? AND sent_at >= ?;`,
		string(draft.StatusSent), cutoff.UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

// Stats summarizes the pipeline for the status command.
type Stats struct {
	Sightings   int
	Companies   int
	Unreachable int
	ByStatus    map[draft.Status]int
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[draft.Status]int)}

	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COUNT(DISTINCT company_key),
       COUNT(DISTINCT CASE WHEN unreachable = 1 THEN company_key END)
FROM sightings;`).Scan(&st.Sightings, &st.Companies, &st.Unreachable)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM drafts GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.ByStatus[draft.Status(status)] = n
	}
	return st, rows.Err()
}

// transitionFailure turns a zero-row UPDATE into the right error.
func (s *Store) transitionFailure(ctx context.Context, id int64) error {
	d, err := s.Draft(ctx, id)
	if err != nil {
		return err
	}
	return &draft.TerminalStateError{ID: id, Status: d.Status}
}

// sendFailure distinguishes a terminal draft from a company that already
// received an outreach.
func (s *Store) sendFailure(ctx context.Context, id int64) error {
	d, err := s.Draft(ctx, id)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return &draft.TerminalStateError{ID: id, Status: d.Status}
	}
	sent, err := s.SentToCompany(ctx, d.CompanyKey)
	if err != nil {
		return err
	}
	if sent {
		return &draft.DuplicateCompanyOutreachError{CompanyKey: d.CompanyKey}
	}
	return &draft.TerminalStateError{ID: id, Status: d.Status}
}

const draftSelect = `
SELECT id, company_key, company, job_title, job_url, source, to_email, email_tier,
       subject, body, status, created_at, updated_at, sent_at
FROM drafts
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*draft.Draft, error) {
	var (
		d                draft.Draft
		source, status   string
		tier             int
		created, updated string
		sent             sql.NullString
	)
	if err := row.Scan(&d.ID, &d.CompanyKey, &d.Company, &d.JobTitle, &d.JobURL,
		&source, &d.ToEmail, &tier, &d.Subject, &d.Body, &status,
		&created, &updated, &sent); err != nil {
		return nil, err
	}
	d.Source = job.Source(source)
	d.EmailTier = job.ConfidenceTier(tier)
	d.Status = draft.Status(status)
	d.CreatedAt, _ = time.Parse(time.RFC3339, created)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	if sent.Valid && sent.String != "" {
		t, err := time.Parse(time.RFC3339, sent.String)
		if err == nil {
			d.SentAt = &t
		}
	}
	return &d, nil
}
