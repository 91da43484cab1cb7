// Package emailfind resolves a contact address for a selected opportunity by
// trying successive strategies until one produces a plausible email. A
// strategy failure is never fatal: the chain moves on, and only full
// exhaustion leaves the opportunity without a contact.
package emailfind

import (
	"context"

	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

// Strategy attempts to produce a contact email for one opportunity. A (nil,
// nil) return means "no result here, try the next one".
type Strategy interface {
	Name() job.ResolutionStrategy
	Resolve(ctx context.Context, opp *job.Opportunity) (*job.ContactEmail, error)
}

type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New builds a resolver over the given strategies, tried in order.
func New(logger *zap.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, logger: logger}
}

// DefaultChain wires the standard three-step chain: scan the posting text,
// crawl the company website, then fall back to HR address patterns.
func DefaultChain(logger *zap.Logger, domains DomainResolver, website *WebsiteStrategy) *Resolver {
	return New(logger,
		&DescriptionStrategy{},
		website,
		NewPatternStrategy(domains, logger),
	)
}

// Resolve walks the chain and returns the first contact found, or nil when
// every strategy is exhausted. The caller marks the opportunity unreachable
// on a nil result; that is an expected outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, opp *job.Opportunity) *job.ContactEmail {
	for _, s := range r.strategies {
		contact, err := s.Resolve(ctx, opp)
		if err != nil {
			r.logger.Debug("email strategy failed, trying next",
				zap.String("strategy", string(s.Name())),
				zap.String("company", opp.Company),
				zap.Error(err),
			)
			continue
		}
		if contact == nil {
			continue
		}

		r.logger.Info("resolved contact email",
			zap.String("company", opp.Company),
			zap.String("address", contact.Address),
			zap.String("strategy", string(contact.Strategy)),
			zap.String("tier", contact.Tier.String()),
		)
		return contact
	}

	r.logger.Info("no contact email found",
		zap.String("company", opp.Company),
		zap.String("title", opp.Title),
	)
	return nil
}

// DescriptionStrategy extracts addresses embedded directly in the posting
// text. Hits here carry the highest confidence tier.
type DescriptionStrategy struct{}

func (s *DescriptionStrategy) Name() job.ResolutionStrategy { return job.StrategyDescriptionScan }

func (s *DescriptionStrategy) Resolve(_ context.Context, opp *job.Opportunity) (*job.ContactEmail, error) {
	emails := rankHRFirst(extractEmails(opp.Description))
	if len(emails) == 0 {
		return nil, nil
	}
	return &job.ContactEmail{
		Address:  emails[0],
		Strategy: job.StrategyDescriptionScan,
		Tier:     job.TierExplicitInPosting,
	}, nil
}
