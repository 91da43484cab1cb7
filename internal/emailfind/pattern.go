package emailfind

import (
	"context"
	"net"

	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

// Prefixes tried when no address could be found anywhere, most
// conventional first.
var patternPrefixes = []string{"careers", "hr", "jobs", "hello"}

// PatternStrategy is the last resort: it fabricates a conventional HR
// address at the company's domain. The MX lookup is advisory only; when DNS
// is unhelpful the first pattern is returned anyway.
type PatternStrategy struct {
	domains  DomainResolver
	lookupMX func(ctx context.Context, domain string) ([]*net.MX, error)
	logger   *zap.Logger
}

func NewPatternStrategy(domains DomainResolver, logger *zap.Logger) *PatternStrategy {
	return &PatternStrategy{
		domains: domains,
		lookupMX: func(ctx context.Context, domain string) ([]*net.MX, error) {
			return net.DefaultResolver.LookupMX(ctx, domain)
		},
		logger: logger,
	}
}

func (s *PatternStrategy) Name() job.ResolutionStrategy { return job.StrategyHRPattern }

func (s *PatternStrategy) Resolve(ctx context.Context, opp *job.Opportunity) (*job.ContactEmail, error) {
	domain, err := s.domains.Find(ctx, opp.Company)
	if err != nil {
		return nil, err
	}
	if domain == "" {
		return nil, nil
	}

	if mx, err := s.lookupMX(ctx, domain); err != nil || len(mx) == 0 {
		s.logger.Debug("no MX records, guessing anyway",
			zap.String("company", opp.Company),
			zap.String("domain", domain))
	}

	return &job.ContactEmail{
		Address:  patternPrefixes[0] + "@" + domain,
		Strategy: job.StrategyHRPattern,
		Tier:     job.TierGenericPattern,
	}, nil
}
