package store

// Schema versioning rides on sqlite's user_version pragma. Each block below
// moves the database one version forward inside a single transaction.
func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v < 1 {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS sightings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_key TEXT NOT NULL,
  company TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  url TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'other',
  discovered_at TEXT NOT NULL,
  contact_email TEXT NOT NULL DEFAULT '',
  contact_strategy TEXT NOT NULL DEFAULT '',
  contact_tier INTEGER NOT NULL DEFAULT -1,
  unreachable INTEGER NOT NULL DEFAULT 0,
  UNIQUE(company_key, source, url)
);`,
			`CREATE INDEX IF NOT EXISTS idx_sightings_company
ON sightings(company_key);`,

			`CREATE TABLE IF NOT EXISTS drafts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_key TEXT NOT NULL,
  company TEXT NOT NULL,
  job_title TEXT NOT NULL,
  job_url TEXT NOT NULL,
  source TEXT NOT NULL,
  to_email TEXT NOT NULL,
  email_tier INTEGER NOT NULL DEFAULT 2,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  sent_at TEXT
);`,
			`CREATE INDEX IF NOT EXISTS idx_drafts_status
ON drafts(status);`,
			`CREATE INDEX IF NOT EXISTS idx_drafts_company
ON drafts(company_key);`,

			`CREATE TABLE IF NOT EXISTS company_domains (
  company_key TEXT PRIMARY KEY,
  domain TEXT NOT NULL,
  fetched_at TEXT NOT NULL
);`,

			`PRAGMA user_version = 1;`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
