package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reacher-cli/reacher/internal/ai"
	"github.com/reacher-cli/reacher/internal/job"
	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	cacheErr   error
	lastPrompt string
	usedCache  string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) GenerateContentWithCache(_ context.Context, prompt, cacheName string) (string, error) {
	s.lastPrompt = prompt
	s.usedCache = cacheName
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) EnsureResumeCache(_ context.Context, _, _, _ string) (string, error) {
	if s.cacheErr != nil {
		return "", s.cacheErr
	}
	return "caches/resume-1", nil
}

func testOpportunity() *job.Opportunity {
	return &job.Opportunity{
		Company:      "Acme #hiring",
		Title:        "Senior TypeScript Engineer",
		Description:  "Build the product.",
		Location:     "Remote",
		Source:       job.SourceLinkedInJobs,
		URL:          "https://example.org/jobs/1",
		DiscoveredAt: time.Now().UTC(),
	}
}

func testCandidate() ai.Candidate {
	return ai.Candidate{
		Name:       "Jordan Doe",
		Email:      "jordan@example.org",
		Phone:      "+1 555 0100",
		ResumeText: "Years of TypeScript.",
	}
}

func TestComposeParsesSubjectAndBody(t *testing.T) {
	stub := &stubGenerator{response: "SUBJECT: TypeScript Engineer Application\n\nBODY:\nDear team,\n\nI build things.\n\nJordan"}
	d := NewDrafter(stub, zap.NewNop(), 0)

	content, err := d.Compose(context.Background(), testOpportunity(), testCandidate())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if content.Fallback {
		t.Fatal("model response should not flag fallback")
	}
	if content.Subject != "TypeScript Engineer Application" {
		t.Errorf("subject = %q", content.Subject)
	}
	if !strings.HasPrefix(content.Body, "Dear team,") {
		t.Errorf("body = %q", content.Body)
	}
	if stub.usedCache != "caches/resume-1" {
		t.Errorf("resume cache not used: %q", stub.usedCache)
	}
}

func TestComposeInlinesResumeWhenCacheFails(t *testing.T) {
	stub := &stubGenerator{
		response: "SUBJECT: Hi\n\nBODY:\nHello.",
		cacheErr: errors.New("cache unavailable"),
	}
	d := NewDrafter(stub, zap.NewNop(), 0)

	_, err := d.Compose(context.Background(), testOpportunity(), testCandidate())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(stub.lastPrompt, "Years of TypeScript.") {
		t.Error("resume text missing from inline prompt")
	}
	if stub.usedCache != "" {
		t.Errorf("cache used despite failure: %q", stub.usedCache)
	}
}

func TestComposeFallsBackOnModelError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exhausted"), cacheErr: errors.New("no cache")}
	d := NewDrafter(stub, zap.NewNop(), 0)

	content, err := d.Compose(context.Background(), testOpportunity(), testCandidate())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !content.Fallback {
		t.Fatal("expected fallback content")
	}
	if content.Subject != "Application for Senior TypeScript Engineer at Acme" {
		t.Errorf("subject = %q", content.Subject)
	}
	if !strings.Contains(content.Body, "Jordan Doe") {
		t.Error("fallback body missing candidate name")
	}
}

func TestComposeFallsBackOnUnparseableResponse(t *testing.T) {
	stub := &stubGenerator{response: "Sure! Here is a great email for you."}
	d := NewDrafter(stub, zap.NewNop(), 0)

	content, err := d.Compose(context.Background(), testOpportunity(), testCandidate())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !content.Fallback {
		t.Fatal("expected fallback for response without SUBJECT:/BODY:")
	}
}

func TestParseEmailResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		subject string
		body    string
	}{
		{
			name:    "standard format",
			raw:     "SUBJECT: Hello\n\nBODY:\nLine one.\nLine two.",
			subject: "Hello",
			body:    "Line one.\nLine two.",
		},
		{
			name:    "lowercase markers",
			raw:     "subject: Hi there\nbody:\nText.",
			subject: "Hi there",
			body:    "Text.",
		},
		{
			name:    "missing body marker keeps remainder",
			raw:     "SUBJECT: Hi\nJust the text.",
			subject: "Hi",
			body:    "Just the text.",
		},
		{
			name: "no subject",
			raw:  "An email without the requested format.",
			body: "An email without the requested format.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := parseEmailResponse(tt.raw)
			if subject != tt.subject {
				t.Errorf("subject = %q, want %q", subject, tt.subject)
			}
			if body != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestCleanForEmail(t *testing.T) {
	if got := cleanForEmail("Acme #hiring #jobs | "); got != "Acme" {
		t.Errorf("cleanForEmail = %q, want Acme", got)
	}
}
