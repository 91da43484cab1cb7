package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reacher-cli/reacher/internal/fetch"
	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

const braveSearchURL = "https://search.brave.com/search?q="

// LinkedInPosts finds public "we're hiring" posts through a web search and
// scrapes the post pages. Posts often carry a direct contact address, which
// makes them the richest source.
type LinkedInPosts struct {
	fetcher *fetch.Client
	logger  *zap.Logger
}

func NewLinkedInPosts(fetcher *fetch.Client, logger *zap.Logger) *LinkedInPosts {
	return &LinkedInPosts{fetcher: fetcher, logger: logger}
}

func (s *LinkedInPosts) Name() job.Source { return job.SourceLinkedInPosts }

func (s *LinkedInPosts) Fetch(ctx context.Context, params SearchParams) ([]job.Raw, error) {
	var out []job.Raw
	seen := make(map[string]struct{})

	for _, keyword := range params.Keywords {
		query := fmt.Sprintf(`site:linkedin.com/posts "%s" (hiring OR "looking for" OR "join") (email OR apply OR resume) remote`, keyword)

		postURLs, err := s.searchPosts(ctx, query, params.MaxPerQuery)
		if err != nil {
			s.logger.Warn("post search failed", zap.String("keyword", keyword), zap.Error(err))
			continue
		}

		for _, postURL := range postURLs {
			clean := strings.TrimSuffix(strings.SplitN(postURL, "?", 2)[0], "/")
			if _, dup := seen[clean]; dup {
				continue
			}
			seen[clean] = struct{}{}

			post, err := s.fetchPost(ctx, postURL)
			if err != nil {
				s.logger.Debug("post fetch failed", zap.String("url", postURL), zap.Error(err))
				continue
			}
			if post != nil {
				out = append(out, *post)
			}
		}
	}
	return out, nil
}

func (s *LinkedInPosts) searchPosts(ctx context.Context, query string, max int) ([]string, error) {
	doc, err := s.fetcher.Document(ctx, braveSearchURL+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	if max <= 0 {
		max = 10
	}

	var urls []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !isPostURL(href) {
			return true
		}
		clean := strings.TrimSuffix(strings.SplitN(href, "?", 2)[0], "/")
		if _, dup := seen[clean]; dup {
			return true
		}
		seen[clean] = struct{}{}
		urls = append(urls, href)
		return len(urls) < max
	})
	return urls, nil
}

func isPostURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "linkedin.com/posts/") ||
		strings.Contains(lower, "linkedin.com/feed/update/")
}

func (s *LinkedInPosts) fetchPost(ctx context.Context, postURL string) (*job.RawPost, error) {
	doc, err := s.fetcher.Document(ctx, postURL)
	if err != nil {
		return nil, err
	}

	text := postText(doc)
	if text == "" {
		return nil, nil
	}

	author := cleanAuthor(metaContent(doc, `meta[property="og:title"]`))
	if author == "" {
		author = cleanAuthor(doc.Find("title").First().Text())
	}

	return &job.RawPost{
		Author:  author,
		Company: guessCompany(text, author),
		Text:    text,
		URL:     postURL,
	}, nil
}

// postText takes the longest of the meta descriptions and the visible post
// body, since public post pages vary in what they render without login.
func postText(doc *goquery.Document) string {
	best := metaContent(doc, `meta[name="description"]`)
	if og := metaContent(doc, `meta[property="og:description"]`); len(og) > len(best) {
		best = og
	}
	for _, selector := range []string{
		"div.feed-shared-update-v2__description",
		"div.attributed-text-segment-list__content",
		"div.update-components-text",
		"article",
	} {
		if node := doc.Find(selector).First(); node.Length() > 0 {
			if body := strings.TrimSpace(node.Text()); len(body) > len(best) {
				best = body
			}
		}
	}
	return strings.TrimSpace(best)
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

var hashtagsMatcher = regexp.MustCompile(`#\w+`)

func stripHashtags(s string) string {
	return strings.Join(strings.Fields(hashtagsMatcher.ReplaceAllString(s, "")), " ")
}

// cleanAuthor turns a post page title like
// "#hiring #fullstack | Paula Mateo on LinkedIn" into the author's name.
func cleanAuthor(raw string) string {
	for _, sep := range []string{" on LinkedIn", " posted on", " | LinkedIn"} {
		if idx := strings.Index(raw, sep); idx >= 0 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, "|") {
		parts := strings.Split(raw, "|")
		for i := len(parts) - 1; i >= 0; i-- {
			clean := stripHashtags(strings.TrimSpace(parts[i]))
			words := strings.Fields(clean)
			if len(words) >= 1 && len(words) <= 5 && !strings.HasPrefix(clean, "#") {
				return clean
			}
		}
		return stripHashtags(strings.TrimSpace(parts[len(parts)-1]))
	}
	return stripHashtags(raw)
}

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:at|@)\s+([A-Z][A-Za-z0-9\s&.]+?)(?:\.|,|!|\n|is hiring|are hiring)`),
	regexp.MustCompile(`([A-Z][A-Za-z0-9\s&.]+?)\s+is\s+(?:hiring|looking|seeking)`),
}

// guessCompany pulls a company name out of the post text, falling back to
// the author.
func guessCompany(text, author string) string {
	clean := stripHashtags(text)
	for _, p := range companyPatterns {
		if m := p.FindStringSubmatch(clean); m != nil {
			company := strings.TrimSpace(m[1])
			if len(company) > 2 && len(company) < 60 {
				return company
			}
		}
	}
	return author
}
