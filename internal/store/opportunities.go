package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/reacher-cli/reacher/internal/job"
)

// InsertOpportunity records one sighting. A repeat of the same
// (company, source, url) triple is ignored and reported as not added.
func (s *Store) InsertOpportunity(ctx context.Context, opp *job.Opportunity) (added bool, err error) {
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO sightings
  (company_key, company, title, description, location, source, url, category, discovered_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		opp.CompanyKey(), opp.Company, opp.Title, opp.Description, opp.Location,
		string(opp.Source), opp.URL, string(opp.Category),
		opp.DiscoveredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SeenSighting reports whether this exact sighting was persisted before.
func (s *Store) SeenSighting(ctx context.Context, companyKey string, source job.Source, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sightings WHERE company_key = ? AND source = ? AND url = ? LIMIT 1;`,
		companyKey, string(source), url,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UndraftedOpportunities returns reachable sightings for companies without a
// live draft, grouped by company key. A company whose only drafts were
// discarded is eligible again.
func (s *Store) UndraftedOpportunities(ctx context.Context) (map[string][]*job.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT company_key, company, title, description, location, source, url, category,
       discovered_at, contact_email, contact_strategy, contact_tier
FROM sightings
WHERE unreachable = 0
  AND company_key NOT IN (SELECT company_key FROM drafts WHERE status != 'discarded')
ORDER BY company_key, discovered_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]*job.Opportunity)
	for rows.Next() {
		opp, key, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out[key] = append(out[key], opp)
	}
	return out, rows.Err()
}

func scanOpportunity(rows *sql.Rows) (*job.Opportunity, string, error) {
	var (
		opp              job.Opportunity
		key, source, cat string
		discovered       string
		email, strategy  string
		tier             int
	)
	if err := rows.Scan(&key, &opp.Company, &opp.Title, &opp.Description, &opp.Location,
		&source, &opp.URL, &cat, &discovered, &email, &strategy, &tier); err != nil {
		return nil, "", err
	}
	opp.Source = job.Source(source)
	opp.Category = job.RoleCategory(cat)
	opp.DiscoveredAt, _ = time.Parse(time.RFC3339, discovered)
	if email != "" {
		opp.Contact = &job.ContactEmail{
			Address:  email,
			Strategy: job.ResolutionStrategy(strategy),
			Tier:     job.ConfidenceTier(tier),
		}
	}
	return &opp, key, nil
}

// AttachContact stores the resolved contact on a sighting.
func (s *Store) AttachContact(ctx context.Context, opp *job.Opportunity, contact *job.ContactEmail) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE sightings
SET contact_email = ?, contact_strategy = ?, contact_tier = ?
WHERE company_key = ? AND source = ? AND url = ?;`,
		contact.Address, string(contact.Strategy), int(contact.Tier),
		opp.CompanyKey(), string(opp.Source), opp.URL,
	)
	return err
}

// MarkUnreachable flags one sighting after the resolution chain came up
// empty. Sibling postings of the same company keep their own chance; a later
// one may carry an address in its text.
func (s *Store) MarkUnreachable(ctx context.Context, opp *job.Opportunity) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE sightings SET unreachable = 1
WHERE company_key = ? AND source = ? AND url = ?;`,
		opp.CompanyKey(), string(opp.Source), opp.URL)
	return err
}

// CompanyDomain implements emailfind.DomainStore.
func (s *Store) CompanyDomain(ctx context.Context, companyKey string) (string, error) {
	var domain string
	err := s.db.QueryRowContext(ctx,
		`SELECT domain FROM company_domains WHERE company_key = ? LIMIT 1;`,
		companyKey,
	).Scan(&domain)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(domain), nil
}

func (s *Store) SaveCompanyDomain(ctx context.Context, companyKey, domain string) error {
	if companyKey == "" || domain == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO company_domains(company_key, domain, fetched_at)
VALUES(?, ?, ?)
ON CONFLICT(company_key) DO UPDATE SET
  domain = excluded.domain,
  fetched_at = excluded.fetched_at;`,
		companyKey, strings.ToLower(domain), time.Now().UTC().Format(time.RFC3339))
	return err
}
