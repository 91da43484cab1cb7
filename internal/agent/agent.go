// Package agent wires scraping, ranking, contact resolution, drafting and
// sending into the outreach pipeline.
package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/reacher-cli/reacher/internal/ai"
	"github.com/reacher-cli/reacher/internal/dedup"
	"github.com/reacher-cli/reacher/internal/draft"
	"github.com/reacher-cli/reacher/internal/emailfind"
	"github.com/reacher-cli/reacher/internal/job"
	"github.com/reacher-cli/reacher/internal/rank"
	"github.com/reacher-cli/reacher/internal/sources"
	"github.com/reacher-cli/reacher/internal/store"
	"github.com/reacher-cli/reacher/internal/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence surface the agent drives.
type Store interface {
	dedup.History
	InsertOpportunity(ctx context.Context, opp *job.Opportunity) (bool, error)
	UndraftedOpportunities(ctx context.Context) (map[string][]*job.Opportunity, error)
	AttachContact(ctx context.Context, opp *job.Opportunity, contact *job.ContactEmail) error
	MarkUnreachable(ctx context.Context, opp *job.Opportunity) error
	Drafts(ctx context.Context, status draft.Status) ([]*draft.Draft, error)
	SaveDraft(ctx context.Context, d *draft.Draft) (int64, error)
	SentSince(ctx context.Context, cutoff time.Time) (int, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// Limits cap outgoing volume. Zero means unlimited.
type Limits struct {
	PerRun int
	PerDay int
}

type Agent struct {
	scrapers  []sources.Scraper
	dedup     *dedup.Deduplicator
	ranker    *rank.Ranker
	resolver  *emailfind.Resolver
	drafter   ai.Drafter
	candidate ai.Candidate
	manager   *draft.Manager
	store     Store
	rules     job.CategoryTable
	limits    Limits
	sendDelay time.Duration
	logger    *zap.Logger
}

type Options struct {
	Scrapers  []sources.Scraper
	Resolver  *emailfind.Resolver
	Drafter   ai.Drafter
	Candidate ai.Candidate
	Manager   *draft.Manager
	Store     Store
	Rules     job.CategoryTable
	Limits    Limits
	SendDelay time.Duration
	Logger    *zap.Logger
}

func New(opts Options) *Agent {
	return &Agent{
		scrapers:  opts.Scrapers,
		dedup:     dedup.New(opts.Store, opts.Logger),
		ranker:    rank.New(opts.Rules),
		resolver:  opts.Resolver,
		drafter:   opts.Drafter,
		candidate: opts.Candidate,
		manager:   opts.Manager,
		store:     opts.Store,
		rules:     opts.Rules,
		limits:    opts.Limits,
		sendDelay: opts.SendDelay,
		logger:    opts.Logger,
	}
}

// ScoutSummary reports one discovery pass.
type ScoutSummary struct {
	Found     int
	Malformed int
	New       int
	Companies int
}

// Scout runs every scraper concurrently, normalizes what they return and
// persists the sightings that have not been seen before. One failing source
// does not stop the others.
func (a *Agent) Scout(ctx context.Context, params sources.SearchParams) (*ScoutSummary, error) {
	var (
		mu   sync.Mutex
		raws []job.Raw
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, scraper := range a.scrapers {
		g.Go(func() error {
			listings, err := scraper.Fetch(gctx, params)
			if err != nil {
				a.logger.Warn("source failed, continuing without it",
					zap.String("source", string(scraper.Name())),
					zap.Error(err))
				return nil
			}
			a.logger.Info("source fetched",
				zap.String("source", string(scraper.Name())),
				zap.Int("listings", len(listings)))
			mu.Lock()
			raws = append(raws, listings...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &ScoutSummary{Found: len(raws)}

	var opps []*job.Opportunity
	for _, raw := range raws {
		opp, err := raw.Normalize(a.rules)
		if err != nil {
			var malformed *job.MalformedRecordError
			if errors.As(err, &malformed) {
				summary.Malformed++
				a.logger.Debug("dropping malformed listing",
					zap.String("source", string(malformed.Source)),
					zap.String("reason", malformed.Reason))
				continue
			}
			return nil, err
		}
		opps = append(opps, opp)
	}

	buckets, err := a.dedup.Partition(ctx, opps)
	if err != nil {
		return nil, err
	}
	summary.Companies = len(buckets)

	for _, candidates := range buckets {
		for _, opp := range candidates {
			added, err := a.store.InsertOpportunity(ctx, opp)
			if err != nil {
				return nil, err
			}
			if added {
				summary.New++
			}
		}
	}

	a.logger.Info("scout complete",
		zap.Int("found", summary.Found),
		zap.Int("malformed", summary.Malformed),
		zap.Int("new", summary.New),
		zap.Int("companies", summary.Companies))
	return summary, nil
}

// DraftSummary reports one drafting pass.
type DraftSummary struct {
	Companies   int
	Drafted     int
	Unreachable int
	Fallback    int
}

// DraftPending picks the best opportunity per undrafted company, resolves a
// contact address and generates a pending draft for review. A candidate with
// no discoverable address is marked unreachable and the next-ranked sibling
// gets its turn; the company counts as unreachable only when every candidate
// is exhausted.
func (a *Agent) DraftPending(ctx context.Context) (*DraftSummary, error) {
	buckets, err := a.store.UndraftedOpportunities(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DraftSummary{Companies: len(buckets)}

	for companyKey, candidates := range buckets {
		a.ranker.Sort(candidates)

		var (
			best    *job.Opportunity
			contact *job.ContactEmail
		)
		for _, candidate := range candidates {
			c := candidate.Contact
			if c == nil {
				c = a.resolver.Resolve(ctx, candidate)
			}
			if c != nil {
				best, contact = candidate, c
				break
			}
			if err := a.store.MarkUnreachable(ctx, candidate); err != nil {
				return nil, err
			}
		}
		if best == nil {
			summary.Unreachable++
			continue
		}

		if best.Contact == nil {
			if err := a.store.AttachContact(ctx, best, contact); err != nil {
				return nil, err
			}
		}

		content, err := a.drafter.Compose(ctx, best, a.candidate)
		if err != nil {
			a.logger.Warn("draft generation failed",
				zap.String("company", best.Company),
				zap.Error(err))
			continue
		}
		if content.Fallback {
			summary.Fallback++
		}

		id, err := a.store.SaveDraft(ctx, &draft.Draft{
			CompanyKey: companyKey,
			Company:    best.Company,
			JobTitle:   best.Title,
			JobURL:     best.URL,
			Source:     best.Source,
			ToEmail:    contact.Address,
			EmailTier:  contact.Tier,
			Subject:    content.Subject,
			Body:       content.Body,
			Status:     draft.StatusPending,
		})
		if err != nil {
			return nil, err
		}
		summary.Drafted++

		a.logger.Info("draft created",
			zap.Int64("id", id),
			zap.String("company", best.Company),
			zap.String("title", best.Title),
			zap.String("to", contact.Address),
			zap.String("tier", contact.Tier.String()))
	}
	return summary, nil
}

// SendSummary reports one sending pass.
type SendSummary struct {
	Sent    int
	Failed  int
	Skipped int
}

// SendApproved delivers approved drafts, oldest first, under the per-run and
// per-day caps. With includePending, pending drafts ride along without
// review. Per-company conflicts are skipped, transport failures counted and
// left retryable.
func (a *Agent) SendApproved(ctx context.Context, includePending bool) (*SendSummary, error) {
	budget, err := a.sendBudget(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SendSummary{}
	if budget == 0 {
		a.logger.Info("daily limit reached, nothing sent")
		return summary, nil
	}

	queue, err := a.store.Drafts(ctx, draft.StatusApproved)
	if err != nil {
		return nil, err
	}
	if includePending {
		pending, err := a.store.Drafts(ctx, draft.StatusPending)
		if err != nil {
			return nil, err
		}
		queue = append(queue, pending...)
	}

	// Drafts lists newest first; send the oldest first.
	for i := len(queue) - 1; i >= 0; i-- {
		if budget > 0 && summary.Sent >= budget {
			a.logger.Info("send limit reached for this run", zap.Int("sent", summary.Sent))
			break
		}

		d := queue[i]
		err := a.manager.Send(ctx, d.ID, includePending)
		switch {
		case err == nil:
			summary.Sent++
			if a.sendDelay > 0 && i > 0 {
				if err := util.WaitFor(ctx, a.sendDelay); err != nil {
					return summary, err
				}
			}
		case isSkippable(err):
			summary.Skipped++
			a.logger.Info("draft skipped", zap.Int64("id", d.ID), zap.Error(err))
		default:
			summary.Failed++
			a.logger.Warn("send failed", zap.Int64("id", d.ID), zap.Error(err))
		}
	}
	return summary, nil
}

// sendBudget returns how many sends are allowed right now, or -1 for
// unlimited.
func (a *Agent) sendBudget(ctx context.Context) (int, error) {
	budget := -1
	if a.limits.PerRun > 0 {
		budget = a.limits.PerRun
	}

	if a.limits.PerDay > 0 {
		midnight := time.Now().UTC().Truncate(24 * time.Hour)
		sentToday, err := a.store.SentSince(ctx, midnight)
		if err != nil {
			return 0, err
		}
		remaining := a.limits.PerDay - sentToday
		if remaining < 0 {
			remaining = 0
		}
		if budget < 0 || remaining < budget {
			budget = remaining
		}
	}
	return budget, nil
}

func isSkippable(err error) bool {
	var dup *draft.DuplicateCompanyOutreachError
	var terminal *draft.TerminalStateError
	return errors.As(err, &dup) || errors.As(err, &terminal)
}

// RunSummary aggregates a full pipeline pass.
type RunSummary struct {
	Scout *ScoutSummary
	Draft *DraftSummary
	Send  *SendSummary
}

// Run executes the whole pipeline. With autoSend the fresh drafts are
// approved and delivered in the same pass; otherwise they wait for review.
func (a *Agent) Run(ctx context.Context, params sources.SearchParams, autoSend bool) (*RunSummary, error) {
	scout, err := a.Scout(ctx, params)
	if err != nil {
		return nil, err
	}

	drafts, err := a.DraftPending(ctx)
	if err != nil {
		return &RunSummary{Scout: scout}, err
	}

	summary := &RunSummary{Scout: scout, Draft: drafts}
	if !autoSend {
		return summary, nil
	}

	if _, err := a.manager.ApproveAll(ctx); err != nil {
		return summary, err
	}
	summary.Send, err = a.SendApproved(ctx, false)
	return summary, err
}

// Status exposes store counters for the status command.
func (a *Agent) Status(ctx context.Context) (*store.Stats, int, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, 0, err
	}
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	sentToday, err := a.store.SentSince(ctx, midnight)
	if err != nil {
		return nil, 0, err
	}
	return stats, sentToday, nil
}
