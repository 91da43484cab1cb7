package emailfind

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gocache "github.com/patrickmn/go-cache"
	"github.com/reacher-cli/reacher/internal/fetch"
	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

// DomainResolver maps a company name to its website domain. "" with a nil
// error means the domain could not be discovered.
type DomainResolver interface {
	Find(ctx context.Context, company string) (string, error)
}

// DomainStore persists discovered company domains across runs. Implemented
// by the store.
type DomainStore interface {
	CompanyDomain(ctx context.Context, companyKey string) (string, error)
	SaveCompanyDomain(ctx context.Context, companyKey, domain string) error
}

// Job boards and aggregators are never the hiring company's own domain.
var domainBlocklist = []string{
	"linkedin.com", "indeed.com", "glassdoor.com", "ziprecruiter.com",
	"monster.com", "careerbuilder.com", "simplyhired.com", "builtin.com",
	"levels.fyi", "crunchbase.com", "wikipedia.org",
	"greenhouse.io", "lever.co", "myworkdayjobs.com", "workday.com",
	"smartrecruiters.com", "icims.com", "jobvite.com", "applytojob.com",
	"duckduckgo.com", "wellfound.com",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// DomainFinder resolves a company name to its website domain: run-local
// memo first, then the persisted domain table, then a DuckDuckGo HTML
// search, and finally a plain www.<name>.com guess.
type DomainFinder struct {
	fetcher *fetch.Client
	store   DomainStore
	memo    *gocache.Cache
	logger  *zap.Logger
}

func NewDomainFinder(fetcher *fetch.Client, store DomainStore, logger *zap.Logger) *DomainFinder {
	return &DomainFinder{
		fetcher: fetcher,
		store:   store,
		memo:    gocache.New(6*time.Hour, 30*time.Minute),
		logger:  logger,
	}
}

// Find returns the best domain for a company, or "" when none could be
// discovered. Negative results are memoized too, to avoid retry storms
// within a run.
func (f *DomainFinder) Find(ctx context.Context, company string) (string, error) {
	key := job.CompanyKey(company)
	if key == "" {
		return "", nil
	}

	if cached, ok := f.memo.Get(key); ok {
		return cached.(string), nil
	}

	if f.store != nil {
		if d, err := f.store.CompanyDomain(ctx, key); err == nil && d != "" {
			f.memo.SetDefault(key, d)
			return d, nil
		}
	}

	domain := f.searchDDG(ctx, company)
	if domain == "" {
		domain = f.guessFromName(ctx, company)
	}

	f.memo.SetDefault(key, domain)
	if domain != "" && f.store != nil {
		if err := f.store.SaveCompanyDomain(ctx, key, domain); err != nil {
			f.logger.Debug("persisting company domain failed", zap.String("company", company), zap.Error(err))
		}
	}
	return domain, nil
}

// searchDDG queries the DuckDuckGo HTML frontend for the company's official
// website and returns the first non-blocklisted result host.
func (f *DomainFinder) searchDDG(ctx context.Context, company string) string {
	query := sanitizeCompany(company) + " official website"
	searchURL := "https://duckduckgo.com/html/?q=" + url.QueryEscape(query)

	doc, err := f.fetcher.Document(ctx, searchURL)
	if err != nil {
		f.logger.Debug("domain search failed", zap.String("company", company), zap.Error(err))
		return ""
	}

	var best string
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		host := hostOf(decodeDDGRedirect(href))
		if host == "" || isBlockedDomain(host) {
			return true
		}
		best = host
		return false
	})
	return best
}

// guessFromName probes https://www.<cleanname>.com and keeps the domain when
// the page answers.
func (f *DomainFinder) guessFromName(ctx context.Context, company string) string {
	clean := nonAlnum.ReplaceAllString(strings.ToLower(company), "")
	if clean == "" {
		return ""
	}
	domain := clean + ".com"
	if _, err := f.fetcher.Get(ctx, "https://www."+domain); err != nil {
		return ""
	}
	return domain
}

func decodeDDGRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	// DDG wraps results as /l/?uddg=<urlencoded>
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if dec, err := url.QueryUnescape(uddg); err == nil && dec != "" {
			return dec
		}
	}
	return href
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}

func isBlockedDomain(host string) bool {
	for _, b := range domainBlocklist {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

// sanitizeCompany strips legal suffixes that add noise to search queries.
func sanitizeCompany(s string) string {
	r := strings.NewReplacer(
		", Inc.", "", " Inc.", "", " Inc", "",
		", LLC", "", " LLC", "",
		", Ltd.", "", " Ltd.", "", " Ltd", "",
		" Recruiting", "", " Staffing", "",
	)
	return strings.Join(strings.Fields(r.Replace(strings.TrimSpace(s))), " ")
}
