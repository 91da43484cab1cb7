package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "reacher"
)

type Config struct {
	Database string         `mapstructure:"database"`
	LockDir  string         `mapstructure:"lock-dir"`
	Search   *SearchConfig  `mapstructure:"search"`
	Profile  *ProfileConfig `mapstructure:"profile"`
	Gemini   *GeminiConfig  `mapstructure:"gemini"`
	SMTP     *SMTPConfig    `mapstructure:"smtp"`
	Twitter  *TwitterConfig `mapstructure:"twitter"`
	Limits   *LimitsConfig  `mapstructure:"limits"`
	Roles    []*RoleConfig  `mapstructure:"roles"`
	Sources  []string       `mapstructure:"sources"`
}

type SearchConfig struct {
	Keywords        []string `mapstructure:"keywords"`
	Locations       []string `mapstructure:"locations"`
	ExperienceLevel string   `mapstructure:"experience-level"`
	MaxPerQuery     int      `mapstructure:"max-per-query"`
}

type ProfileConfig struct {
	Name           string `mapstructure:"name"`
	Email          string `mapstructure:"email"`
	Phone          string `mapstructure:"phone"`
	ResumeTextFile string `mapstructure:"resume-text-file"`
	ResumePDF      string `mapstructure:"resume-pdf"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type SMTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	FromName     string `mapstructure:"from-name"`
	ReplyTo      string `mapstructure:"reply-to"`
}

type TwitterConfig struct {
	BearerToken     string `mapstructure:"bearer-token"`
	BearerTokenFile string `mapstructure:"bearer-token-file"`
}

type LimitsConfig struct {
	PerRun    int           `mapstructure:"per-run"`
	PerDay    int           `mapstructure:"per-day"`
	SendDelay time.Duration `mapstructure:"send-delay"`
}

// RoleConfig overrides the built-in role category keywords.
type RoleConfig struct {
	Category string   `mapstructure:"category"`
	Keywords []string `mapstructure:"keywords"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "reacher scouts job openings across the public web and drafts outreach emails for them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("smtp.password-file", "SMTP_PASSWORD_FILE"); err != nil {
		log.Fatalf("binding SMTP_PASSWORD_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("twitter.bearer-token-file", "TWITTER_BEARER_TOKEN_FILE"); err != nil {
		log.Fatalf("binding TWITTER_BEARER_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is reacher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// A broken config file is fatal; a missing one just means defaults,
	// unless the user pointed at it explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}
