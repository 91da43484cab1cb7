// Package dedup decides which freshly scraped opportunities are genuinely
// new. Re-sightings of a persisted posting are discarded; distinct postings
// at the same company are all kept as competing candidates, because ranking
// happens later and the better role must survive until then.
package dedup

import (
	"context"

	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

// History answers whether a (company-key, source, url) sighting is already
// persisted. Implemented by the store.
type History interface {
	SeenSighting(ctx context.Context, companyKey string, source job.Source, url string) (bool, error)
}

type Deduplicator struct {
	history History
	logger  *zap.Logger
}

func New(history History, logger *zap.Logger) *Deduplicator {
	return &Deduplicator{history: history, logger: logger}
}

// Partition splits normalized opportunities into per-company buckets,
// dropping exact re-sightings (same company, source and URL) against both
// the persisted history and earlier entries of the same batch.
func (d *Deduplicator) Partition(ctx context.Context, opportunities []*job.Opportunity) (map[string][]*job.Opportunity, error) {
	buckets := make(map[string][]*job.Opportunity)
	seen := make(map[string]struct{}, len(opportunities))

	for _, opp := range opportunities {
		key := opp.SightingKey()
		if _, dup := seen[key]; dup {
			d.logger.Debug("dropping in-batch duplicate",
				zap.String("company", opp.Company),
				zap.String("url", opp.URL),
			)
			continue
		}
		seen[key] = struct{}{}

		known, err := d.history.SeenSighting(ctx, opp.CompanyKey(), opp.Source, opp.URL)
		if err != nil {
			return nil, err
		}
		if known {
			d.logger.Debug("dropping re-sighting of a known posting",
				zap.String("company", opp.Company),
				zap.String("url", opp.URL),
			)
			continue
		}

		companyKey := opp.CompanyKey()
		buckets[companyKey] = append(buckets[companyKey], opp)
	}

	return buckets, nil
}
