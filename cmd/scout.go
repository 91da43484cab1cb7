package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoutCmd = &cobra.Command{
	Use:   "scout",
	Short: "Scrape the configured sources for new openings without drafting anything",
	Run: func(_ *cobra.Command, _ []string) {
		scout()
	},
}

func init() {
	rootCmd.AddCommand(scoutCmd)
}

func scout() {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	if len(app.searchParams().Keywords) == 0 {
		app.logger.Warn("no search keywords configured",
			zap.String("hint", "set search.keywords in the configuration file"),
		)
	}

	summary, err := app.agent.Scout(ctx, app.searchParams())
	if err != nil {
		app.logger.Fatal("scouting failed", zap.Error(err))
	}

	app.logger.Info("scouting finished",
		zap.Int("found", summary.Found),
		zap.Int("malformed", summary.Malformed),
		zap.Int("new", summary.New),
		zap.Int("companies", summary.Companies),
	)
}
