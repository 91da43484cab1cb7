package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/reacher-cli/reacher/internal/ai"
	"github.com/reacher-cli/reacher/internal/job"
	"github.com/reacher-cli/reacher/internal/util"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateContentWithCache(ctx context.Context, prompt, cacheName string) (string, error)
	EnsureResumeCache(ctx context.Context, resumeID, displayName, resumePayload string) (string, error)
}

// Drafter composes application emails from opportunities. A model failure
// never fails the pipeline; the static template takes over instead.
type Drafter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxDescriptionRunes = 3000
	maxResumeRunes      = 4000
	resumeCacheID       = "default"
)

func NewDrafter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Drafter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Drafter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Compose generates subject and body for one opportunity. The resume rides
// in a Gemini content cache when possible, inline otherwise.
func (d *Drafter) Compose(ctx context.Context, opp *job.Opportunity, candidate ai.Candidate) (*ai.EmailContent, error) {
	if opp == nil {
		return nil, fmt.Errorf("opportunity is required")
	}

	raw, err := d.generate(ctx, opp, candidate)
	if err != nil {
		d.logger.Warn("model composition failed, using fallback template",
			zap.String("company", opp.Company),
			zap.Error(err))
		return fallbackEmail(opp, candidate), nil
	}

	d.logger.Debug("gemini compose response",
		zap.String("company", opp.Company),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, d.maxLogLen)),
	)

	subject, body := parseEmailResponse(raw)
	if subject == "" || body == "" {
		d.logger.Warn("could not parse model response, using fallback template",
			zap.String("company", opp.Company))
		return fallbackEmail(opp, candidate), nil
	}

	return &ai.EmailContent{
		Subject: cleanForEmail(subject),
		Body:    body,
		Raw:     raw,
	}, nil
}

func (d *Drafter) generate(ctx context.Context, opp *job.Opportunity, candidate ai.Candidate) (string, error) {
	resume := clampRunes(candidate.ResumeText, maxResumeRunes)

	if resume != "" {
		cacheName, err := d.generator.EnsureResumeCache(ctx, resumeCacheID, "resume-"+candidate.Name, resume)
		if err == nil {
			prompt := buildPrompt(opp, candidate, "(provided above)")
			d.logPrompt(opp, prompt)
			return d.generator.GenerateContentWithCache(ctx, prompt, cacheName)
		}
		d.logger.Debug("resume cache unavailable, sending resume inline",
			zap.String("company", opp.Company),
			zap.Error(err))
	}

	if resume == "" {
		resume = "No resume provided"
	}
	prompt := buildPrompt(opp, candidate, resume)
	d.logPrompt(opp, prompt)
	return d.generator.GenerateContent(ctx, prompt)
}

func (d *Drafter) logPrompt(opp *job.Opportunity, prompt string) {
	d.logger.Debug("gemini compose request",
		zap.String("company", opp.Company),
		zap.String("title", opp.Title),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, d.maxLogLen)),
	)
}

func buildPrompt(opp *job.Opportunity, candidate ai.Candidate, resumeText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job: {{JOB_TITLE}} at {{COMPANY}}\n\nResume:\n{{RESUME_TEXT}}\n\nSUBJECT:/BODY: response:"
	}

	location := opp.Location
	if location == "" {
		location = "Not specified"
	}
	description := clampRunes(opp.Description, maxDescriptionRunes)
	if description == "" {
		description = "No description available"
	}

	r := strings.NewReplacer(
		"{{JOB_TITLE}}", cleanForEmail(opp.Title),
		"{{COMPANY}}", cleanForEmail(opp.Company),
		"{{LOCATION}}", location,
		"{{DESCRIPTION}}", description,
		"{{RESUME_TEXT}}", resumeText,
		"{{CANDIDATE_NAME}}", candidate.Name,
		"{{CANDIDATE_EMAIL}}", candidate.Email,
		"{{CANDIDATE_PHONE}}", candidate.Phone,
	)
	return r.Replace(template)
}

// parseEmailResponse splits a SUBJECT:/BODY: formatted response. Either part
// may come back empty when the model ignored the format.
func parseEmailResponse(raw string) (subject, body string) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	bodyStart := 0

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToUpper(stripped), "SUBJECT:") {
			subject = strings.TrimSpace(stripped[len("SUBJECT:"):])
			bodyStart = i + 1
			break
		}
	}

	remaining := lines[bodyStart:]
	for i, line := range remaining {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "BODY:") {
			remaining = remaining[i+1:]
			break
		}
	}

	return subject, strings.TrimSpace(strings.Join(remaining, "\n"))
}

var hashtagPattern = regexp.MustCompile(`#\w+`)

// cleanForEmail strips hashtags and stray separators that scraped titles and
// company names tend to carry.
func cleanForEmail(text string) string {
	cleaned := hashtagPattern.ReplaceAllString(text, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimSuffix(cleaned, "|")
	cleaned = strings.TrimPrefix(cleaned, "|")
	return strings.TrimSpace(cleaned)
}

func clampRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func fallbackEmail(opp *job.Opportunity, candidate ai.Candidate) *ai.EmailContent {
	title := cleanForEmail(opp.Title)
	company := cleanForEmail(opp.Company)

	body := fmt.Sprintf(`Dear Hiring Manager,

I am excited to apply for the %s position at %s. My background and the role
look like a strong match, and I would love the chance to show it.

My resume is attached with the details of my experience. I would welcome the
opportunity to discuss how my skills align with your needs.

Best regards,
%s
%s
%s`, title, company, candidate.Name, candidate.Email, candidate.Phone)

	return &ai.EmailContent{
		Subject:  fmt.Sprintf("Application for %s at %s", title, company),
		Body:     body,
		Fallback: true,
	}
}
