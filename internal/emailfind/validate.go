package emailfind

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Domains that show up in scraped pages but never belong to the hiring
// company (trackers, CDNs, job boards, the sources themselves).
var skipDomains = map[string]struct{}{
	"example.com": {}, "test.com": {}, "linkedin.com": {}, "licdn.com": {},
	"facebook.com": {}, "twitter.com": {}, "x.com": {}, "t.co": {},
	"google.com": {}, "googleapis.com": {}, "github.com": {},
	"githubusercontent.com": {}, "sentry.io": {}, "gravatar.com": {},
	"wp.com": {}, "wordpress.com": {}, "w3.org": {}, "schema.org": {},
	"cloudflare.com": {}, "amazonaws.com": {}, "gstatic.com": {},
	"bootstrapcdn.com": {}, "jquery.com": {},
}

var skipPrefixes = map[string]struct{}{
	"noreply": {}, "no-reply": {}, "donotreply": {}, "do-not-reply": {},
	"mailer-daemon": {}, "postmaster": {}, "webmaster": {}, "admin": {},
	"support": {}, "abuse": {}, "security": {}, "privacy": {},
}

// hrPrefixes mark addresses likely monitored by recruiting, ranked before
// generic ones when several candidates are found on the same page.
var hrPrefixes = []string{
	"hr", "careers", "jobs", "hiring", "recruiting",
	"recruitment", "talent", "apply", "career", "people",
}

// isPlausible reports whether an extracted address looks like a real contact
// address rather than scraper noise.
func isPlausible(email string) bool {
	lower := strings.ToLower(email)
	at := strings.LastIndex(lower, "@")
	if at <= 0 || at == len(lower)-1 {
		return false
	}
	prefix, domain := lower[:at], lower[at+1:]

	if _, skip := skipDomains[domain]; skip {
		return false
	}
	if _, skip := skipPrefixes[prefix]; skip {
		return false
	}
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"} {
		if strings.HasSuffix(domain, ext) {
			return false
		}
	}
	return len(email) <= 80
}

// extractEmails returns all plausible addresses in a block of text,
// lowercased and deduplicated, in order of first appearance.
func extractEmails(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, raw := range emailPattern.FindAllString(text, -1) {
		if !isPlausible(raw) {
			continue
		}
		lower := strings.ToLower(raw)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

// rankHRFirst reorders addresses so HR-like prefixes come before generic
// ones, preserving relative order within each group.
func rankHRFirst(emails []string) []string {
	if len(emails) < 2 {
		return emails
	}
	var hr, other []string
	for _, email := range emails {
		prefix := strings.SplitN(email, "@", 2)[0]
		matched := false
		for _, p := range hrPrefixes {
			if strings.Contains(prefix, p) {
				matched = true
				break
			}
		}
		if matched {
			hr = append(hr, email)
		} else {
			other = append(other, email)
		}
	}
	return append(hr, other...)
}
