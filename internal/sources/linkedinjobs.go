package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/reacher-cli/reacher/internal/fetch"
	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

// LinkedIn serves its public job search to guests through this endpoint.
const linkedinSearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"

var experienceLevels = map[string]string{
	"junior": "2",
	"mid":    "3",
	"senior": "4",
}

// Location or description phrases that mark a listing as remote-friendly.
var remoteKeywords = []string{
	"remote", "worldwide", "anywhere", "work from home", "wfh",
	"distributed", "global", "fully remote", "100% remote",
	"work from anywhere", "location flexible", "remote-friendly",
}

// LinkedInJobs scrapes the public guest job search and the individual job
// pages behind it.
type LinkedInJobs struct {
	fetcher *fetch.Client
	logger  *zap.Logger
}

func NewLinkedInJobs(fetcher *fetch.Client, logger *zap.Logger) *LinkedInJobs {
	return &LinkedInJobs{fetcher: fetcher, logger: logger}
}

func (s *LinkedInJobs) Name() job.Source { return job.SourceLinkedInJobs }

func (s *LinkedInJobs) Fetch(ctx context.Context, params SearchParams) ([]job.Raw, error) {
	var out []job.Raw
	seen := make(map[string]struct{})

	locations := params.Locations
	if len(locations) == 0 {
		locations = []string{"Remote"}
	}

	for _, keyword := range params.Keywords {
		for _, location := range locations {
			cards, err := s.search(ctx, keyword, location, params.ExperienceLevel)
			if err != nil {
				s.logger.Warn("job search failed",
					zap.String("keyword", keyword),
					zap.String("location", location),
					zap.Error(err))
				continue
			}

			limit := params.MaxPerQuery
			if limit <= 0 || limit > len(cards) {
				limit = len(cards)
			}

			for _, card := range cards[:limit] {
				if _, dup := seen[card.URL]; dup {
					continue
				}
				seen[card.URL] = struct{}{}

				card.Description = s.jobDescription(ctx, card.URL)
				if !remoteFriendly(card.Location, card.Description) {
					continue
				}
				out = append(out, card)
			}

			s.logger.Debug("job search page parsed",
				zap.String("keyword", keyword),
				zap.String("location", location),
				zap.Int("cards", len(cards)))
		}
	}
	return out, nil
}

func (s *LinkedInJobs) search(ctx context.Context, keyword, location, experience string) ([]job.RawJobCard, error) {
	doc, err := s.fetcher.Document(ctx, searchURL(keyword, location, experience, 0))
	if err != nil {
		return nil, err
	}

	var cards []job.RawJobCard
	doc.Find("div.base-card").Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h3.base-search-card__title").Text())
		company := strings.TrimSpace(card.Find("h4.base-search-card__subtitle").Text())
		if title == "" || company == "" {
			return
		}

		href, _ := card.Find("a.base-card__full-link").Attr("href")
		jobURL := strings.SplitN(strings.TrimSpace(href), "?", 2)[0]
		if jobURL == "" {
			return
		}

		raw := job.RawJobCard{
			Title:    title,
			Company:  company,
			Location: strings.TrimSpace(card.Find("span.job-search-card__location").Text()),
			URL:      jobURL,
		}
		if dt, ok := card.Find("time").Attr("datetime"); ok {
			if t, err := time.Parse("2006-01-02", dt); err == nil {
				raw.PostedAt = &t
			}
		}
		cards = append(cards, raw)
	})
	return cards, nil
}

// jobDescription loads the full job page; listings without a readable
// description stay in the pipeline with an empty one.
func (s *LinkedInJobs) jobDescription(ctx context.Context, jobURL string) string {
	doc, err := s.fetcher.Document(ctx, jobURL)
	if err != nil {
		s.logger.Debug("job page fetch failed", zap.String("url", jobURL), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(doc.Find("div.show-more-less-html__markup").Text())
}

func searchURL(keyword, location, experience string, start int) string {
	params := url.Values{}
	params.Set("keywords", keyword)
	params.Set("location", location)
	params.Set("start", strconv.Itoa(start))
	params.Set("f_TPR", "r604800") // past week
	params.Set("f_WT", "2")        // remote listings
	if code, ok := experienceLevels[experience]; ok {
		params.Set("f_E", code)
	}
	return linkedinSearchURL + "?" + params.Encode()
}

func remoteFriendly(location, description string) bool {
	combined := strings.ToLower(location + " " + description)
	for _, kw := range remoteKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}
