package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline: scout openings, draft outreach and optionally send it",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "approve and send fresh drafts without review")
	runCmd.Flags().Bool("dry-run", false, "do everything except sending, print the send queue instead")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	autoSend := cmd.Flag("yes").Value.String() == "true"
	dryRun := cmd.Flag("dry-run").Value.String() == "true"

	app, err := newApplication(ctx, appOptions{
		drafter: true,
		deliver: autoSend && !dryRun,
	})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	app.logger.Info("starting the reacher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(app.cfg, "", "  ")
	app.logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if len(app.searchParams().Keywords) == 0 {
		app.logger.Warn("no search keywords configured",
			zap.String("hint", "set search.keywords in the configuration file"),
		)
	}

	summary, err := app.agent.Run(ctx, app.searchParams(), autoSend && !dryRun)
	if err != nil {
		app.logger.Fatal("pipeline failed", zap.Error(err))
	}

	app.logger.Info("scouting finished",
		zap.Int("found", summary.Scout.Found),
		zap.Int("malformed", summary.Scout.Malformed),
		zap.Int("new", summary.Scout.New),
		zap.Int("companies", summary.Scout.Companies),
	)
	app.logger.Info("drafting finished",
		zap.Int("companies", summary.Draft.Companies),
		zap.Int("drafted", summary.Draft.Drafted),
		zap.Int("unreachable", summary.Draft.Unreachable),
		zap.Int("fallback", summary.Draft.Fallback),
	)

	switch {
	case dryRun:
		if err := printSendQueue(ctx, app, autoSend); err != nil {
			app.logger.Fatal("listing the send queue", zap.Error(err))
		}
	case autoSend:
		app.logger.Info("sending finished",
			zap.Int("sent", summary.Send.Sent),
			zap.Int("failed", summary.Send.Failed),
			zap.Int("skipped", summary.Send.Skipped),
		)
	default:
		app.logger.Info("drafts are waiting for review",
			zap.String("hint", "run 'reacher review' to approve them"),
		)
	}
}
