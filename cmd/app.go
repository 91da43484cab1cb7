package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reacher-cli/reacher/internal/agent"
	"github.com/reacher-cli/reacher/internal/ai"
	"github.com/reacher-cli/reacher/internal/ai/gemini"
	"github.com/reacher-cli/reacher/internal/draft"
	"github.com/reacher-cli/reacher/internal/emailfind"
	"github.com/reacher-cli/reacher/internal/fetch"
	"github.com/reacher-cli/reacher/internal/job"
	"github.com/reacher-cli/reacher/internal/logger"
	"github.com/reacher-cli/reacher/internal/mailer"
	"github.com/reacher-cli/reacher/internal/secrets"
	"github.com/reacher-cli/reacher/internal/sources"
	"github.com/reacher-cli/reacher/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultDatabase     = "reacher.db"
	defaultGeminiModel  = "gemini-2.5-flash"
	defaultFetchTimeout = 20 * time.Second
	defaultFetchRate    = 0.5
)

// application bundles everything a command needs after wiring.
type application struct {
	cfg     *Config
	logger  *zap.Logger
	store   *store.Store
	manager *draft.Manager
	agent   *agent.Agent
}

type appOptions struct {
	// drafter builds the Gemini client. Commands that never compose
	// emails skip it so they run without an API key.
	drafter bool
	// deliver builds the SMTP transport. Without it the manager gets a
	// logging transport, which is fine for commands that never send.
	deliver bool
}

func newApplication(ctx context.Context, opts appOptions) (*application, error) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()

	st, err := store.Open(config.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", config.Database, err)
	}

	fetcher := fetch.New(defaultFetchTimeout, defaultFetchRate)
	domains := emailfind.NewDomainFinder(fetcher, st, logger)
	website := emailfind.NewWebsiteStrategy(domains, fetcher, logger)
	resolver := emailfind.DefaultChain(logger, domains, website)

	var (
		drafter   ai.Drafter
		candidate ai.Candidate
	)
	if opts.drafter {
		if candidate, err = loadCandidate(config.Profile, logger); err != nil {
			st.Close()
			return nil, err
		}
		if drafter, err = newDrafter(ctx, config.Gemini, logger); err != nil {
			st.Close()
			return nil, err
		}
	}

	var transport draft.Transport = &mailer.DryRun{Logger: logger}
	if opts.deliver {
		if transport, err = newMailer(config, logger); err != nil {
			st.Close()
			return nil, err
		}
	}

	manager := draft.NewManager(st, transport, config.LockDir, logger)

	var limits agent.Limits
	var sendDelay time.Duration
	if config.Limits != nil {
		limits = agent.Limits{PerRun: config.Limits.PerRun, PerDay: config.Limits.PerDay}
		sendDelay = config.Limits.SendDelay
	}

	ag := agent.New(agent.Options{
		Scrapers:  buildScrapers(config, fetcher, logger),
		Resolver:  resolver,
		Drafter:   drafter,
		Candidate: candidate,
		Manager:   manager,
		Store:     st,
		Rules:     categoryRules(config.Roles),
		Limits:    limits,
		SendDelay: sendDelay,
		Logger:    logger,
	})

	return &application{
		cfg:     config,
		logger:  logger,
		store:   st,
		manager: manager,
		agent:   ag,
	}, nil
}

func (a *application) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// searchParams translates the search section of the config for the scrapers.
func (a *application) searchParams() sources.SearchParams {
	if a.cfg.Search == nil {
		return sources.SearchParams{}
	}
	return sources.SearchParams{
		Keywords:        a.cfg.Search.Keywords,
		Locations:       a.cfg.Search.Locations,
		ExperienceLevel: a.cfg.Search.ExperienceLevel,
		MaxPerQuery:     a.cfg.Search.MaxPerQuery,
	}
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(os.TempDir(), app+"-locks")
	}
	if c.Gemini == nil {
		c.Gemini = &GeminiConfig{}
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func newDrafter(ctx context.Context, cfg *GeminiConfig, log *zap.Logger) (ai.Drafter, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}

	return gemini.NewDrafter(generator, logger.WithModel(log, "gemini", generator.Model()), cfg.MaxLogLength), nil
}

func loadCandidate(cfg *ProfileConfig, logger *zap.Logger) (ai.Candidate, error) {
	if cfg == nil || cfg.Name == "" || cfg.Email == "" {
		return ai.Candidate{}, fmt.Errorf("profile name and email are required to draft outreach emails")
	}

	candidate := ai.Candidate{
		Name:  cfg.Name,
		Email: cfg.Email,
		Phone: cfg.Phone,
	}

	if cfg.ResumeTextFile != "" {
		data, err := os.ReadFile(cfg.ResumeTextFile)
		if err != nil {
			return ai.Candidate{}, fmt.Errorf("reading resume text: %w", err)
		}
		candidate.ResumeText = string(data)
	} else {
		logger.Warn("no resume text configured, drafts will not reference your background",
			zap.String("hint", "set profile.resume-text-file in the configuration file"),
		)
	}

	return candidate, nil
}

func newMailer(cfg *Config, logger *zap.Logger) (draft.Transport, error) {
	if cfg.SMTP == nil {
		return nil, fmt.Errorf("smtp configuration is required to send emails")
	}
	if cfg.Profile == nil || cfg.Profile.Email == "" {
		return nil, fmt.Errorf("profile email is required to send emails")
	}

	password := cfg.SMTP.Password
	if cfg.SMTP.PasswordFile != "" {
		loaded, err := secrets.Load(secrets.Source{
			Name:  "smtp password",
			Value: cfg.SMTP.Password,
			File:  cfg.SMTP.PasswordFile,
		})
		if err != nil {
			return nil, err
		}
		password = loaded
	}

	return mailer.New(mailer.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.Profile.Email,
		ReplyTo:   cfg.SMTP.ReplyTo,
		ResumePDF: cfg.Profile.ResumePDF,
	}, logger)
}

func buildScrapers(cfg *Config, fetcher *fetch.Client, logger *zap.Logger) []sources.Scraper {
	enabled := func(name job.Source) bool {
		if len(cfg.Sources) == 0 {
			return true
		}
		for _, s := range cfg.Sources {
			if job.Source(strings.TrimSpace(s)) == name {
				return true
			}
		}
		return false
	}

	scrapers := make([]sources.Scraper, 0, 3)
	if enabled(job.SourceLinkedInJobs) {
		scrapers = append(scrapers, sources.NewLinkedInJobs(fetcher, logger))
	}
	if enabled(job.SourceLinkedInPosts) {
		scrapers = append(scrapers, sources.NewLinkedInPosts(fetcher, logger))
	}
	if enabled(job.SourceTwitter) {
		token, err := twitterToken(cfg.Twitter)
		if err != nil {
			logger.Warn("skipping the twitter source", zap.Error(err))
		} else {
			scrapers = append(scrapers, sources.NewTwitter(token, logger))
		}
	}
	return scrapers
}

func twitterToken(cfg *TwitterConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("twitter bearer token is not configured")
	}
	return secrets.Load(secrets.Source{
		Name:  "twitter bearer token",
		Value: cfg.BearerToken,
		File:  cfg.BearerTokenFile,
	})
}

// categoryRules builds the ranking table, letting the roles section of the
// config replace the built-in keyword rules. Configured order becomes the
// ranking priority.
func categoryRules(roles []*RoleConfig) job.CategoryTable {
	table := job.DefaultCategoryTable()
	if len(roles) == 0 {
		return table
	}

	rules := make([]job.CategoryRule, 0, len(roles))
	order := make([]job.RoleCategory, 0, len(roles)+1)
	for _, role := range roles {
		category := job.RoleCategory(strings.TrimSpace(role.Category))
		if category == "" {
			continue
		}
		rules = append(rules, job.CategoryRule{Category: category, Keywords: role.Keywords})
		order = append(order, category)
	}
	if len(rules) == 0 {
		return table
	}

	table.Rules = rules
	table.Order = append(order, job.CategoryOther)
	return table
}
