package emailfind

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reacher-cli/reacher/internal/fetch"
	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

// Pages most likely to carry a hiring contact, probed in order after the
// homepage.
var careerPaths = []string{
	"/careers", "/careers/", "/jobs", "/join-us", "/join", "/about",
	"/about-us", "/contact", "/contact-us", "/company",
}

// WebsiteStrategy discovers the company's own site and crawls a handful of
// pages for contact addresses. Hits on the company's domain carry the
// company-domain confidence tier.
type WebsiteStrategy struct {
	domains DomainResolver
	fetcher *fetch.Client
	logger  *zap.Logger
}

func NewWebsiteStrategy(domains DomainResolver, fetcher *fetch.Client, logger *zap.Logger) *WebsiteStrategy {
	return &WebsiteStrategy{domains: domains, fetcher: fetcher, logger: logger}
}

func (s *WebsiteStrategy) Name() job.ResolutionStrategy { return job.StrategyCompanyWebsite }

func (s *WebsiteStrategy) Resolve(ctx context.Context, opp *job.Opportunity) (*job.ContactEmail, error) {
	domain, err := s.domains.Find(ctx, opp.Company)
	if err != nil {
		return nil, err
	}
	if domain == "" {
		return nil, nil
	}

	base := "https://" + domain
	pages := append([]string{""}, careerPaths...)
	for _, path := range pages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		doc, err := s.fetcher.Document(ctx, base+path)
		if err != nil {
			s.logger.Debug("page fetch failed",
				zap.String("company", opp.Company),
				zap.String("url", base+path),
				zap.Error(err))
			continue
		}

		if addr := bestAddress(pageEmails(doc), domain); addr != "" {
			tier := job.TierGenericPattern
			if strings.HasSuffix(addr, "@"+domain) {
				tier = job.TierCompanyDomain
			}
			return &job.ContactEmail{
				Address:  addr,
				Strategy: job.StrategyCompanyWebsite,
				Tier:     tier,
			}, nil
		}
	}
	return nil, nil
}

// pageEmails collects addresses from mailto links first, then from visible
// page text.
func pageEmails(doc *goquery.Document) []string {
	var found []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		found = append(found, addr)
	})
	text, _ := doc.Html()
	found = append(found, extractEmails(text)...)

	return extractEmails(strings.Join(found, " "))
}

// bestAddress prefers HR-flavored prefixes, then same-domain addresses, then
// anything plausible.
func bestAddress(addrs []string, domain string) string {
	ranked := rankHRFirst(addrs)
	for _, a := range ranked {
		if strings.HasSuffix(a, "@"+domain) {
			return a
		}
	}
	if len(ranked) > 0 {
		return ranked[0]
	}
	return ""
}
