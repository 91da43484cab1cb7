package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

const twitterSearchURL = "https://api.twitter.com/2/tweets/search/recent"

// Twitter searches the X v2 recent-search API for hiring tweets. Only tweets
// carrying an email address are worth keeping; the rest have no way to apply.
type Twitter struct {
	client *resty.Client
	logger *zap.Logger
}

func NewTwitter(bearerToken string, logger *zap.Logger) *Twitter {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetAuthToken(bearerToken)
	return &Twitter{client: client, logger: logger}
}

func (s *Twitter) Name() job.Source { return job.SourceTwitter }

func (s *Twitter) Fetch(ctx context.Context, params SearchParams) ([]job.Raw, error) {
	var out []job.Raw
	seen := make(map[string]struct{})

	for _, keyword := range params.Keywords {
		resp, err := s.search(ctx, buildTweetQuery(keyword), params.MaxPerQuery)
		if err != nil {
			s.logger.Warn("tweet search failed", zap.String("keyword", keyword), zap.Error(err))
			continue
		}

		authors := make(map[string]string, len(resp.Includes.Users))
		for _, u := range resp.Includes.Users {
			authors[u.ID] = fmt.Sprintf("%s (@%s)", u.Name, u.Username)
		}

		for _, tweet := range resp.Data {
			if _, dup := seen[tweet.ID]; dup {
				continue
			}
			seen[tweet.ID] = struct{}{}

			if !containsEmail(tweet.Text) {
				continue
			}

			raw := job.RawTweet{
				ID:     tweet.ID,
				Author: authors[tweet.AuthorID],
				Text:   tweet.Text,
			}
			if t, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
				raw.PostedAt = &t
			}
			out = append(out, raw)
		}

		s.logger.Debug("tweet search done",
			zap.String("keyword", keyword),
			zap.Int("tweets", len(resp.Data)))
	}
	return out, nil
}

type tweetSearchResponse struct {
	Data     []tweetItem `mapstructure:"data"`
	Includes struct {
		Users []tweetUser `mapstructure:"users"`
	} `mapstructure:"includes"`
}

type tweetItem struct {
	ID        string `mapstructure:"id"`
	Text      string `mapstructure:"text"`
	AuthorID  string `mapstructure:"author_id"`
	CreatedAt string `mapstructure:"created_at"`
}

type tweetUser struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
}

func (s *Twitter) search(ctx context.Context, query string, max int) (*tweetSearchResponse, error) {
	if max <= 0 || max > 100 {
		max = 20
	}
	if max < 10 {
		max = 10 // API minimum
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":        query,
			"max_results":  fmt.Sprintf("%d", max),
			"tweet.fields": "created_at,author_id,text",
			"expansions":   "author_id",
			"user.fields":  "name,username",
		}).
		Get(twitterSearchURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("tweet search: status %d: %s", resp.StatusCode(), resp.String())
	}

	return decodeTweetSearch(resp.Body())
}

// decodeTweetSearch tolerates the API's loose typing; numeric IDs arrive as
// strings or numbers depending on field.
func decodeTweetSearch(body []byte) (*tweetSearchResponse, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse tweet search response: %w", err)
	}

	var out tweetSearchResponse
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode tweet search response: %w", err)
	}
	return &out, nil
}

func buildTweetQuery(keyword string) string {
	query := fmt.Sprintf(`("%s") (hiring OR "job opening" OR "we are looking" OR "apply") (@ OR "email") -is:retweet`, keyword)
	if len(query) > 512 {
		query = fmt.Sprintf(`("%s") (hiring OR "job opening") (@ OR "email")`, keyword)
	}
	return query
}

var tweetEmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

var tweetEmailNoise = []string{
	"example.com", "test.com", "twitter.com", "x.com", "t.co",
	"noreply", "no-reply",
}

func containsEmail(text string) bool {
	for _, email := range tweetEmailPattern.FindAllString(text, -1) {
		lower := strings.ToLower(email)
		noisy := false
		for _, skip := range tweetEmailNoise {
			if strings.Contains(lower, skip) {
				noisy = true
				break
			}
		}
		if !noisy {
			return true
		}
	}
	return false
}
