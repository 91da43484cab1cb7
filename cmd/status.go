package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/reacher-cli/reacher/internal/draft"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print pipeline counters: sightings, companies and draft states",
	Run: func(_ *cobra.Command, _ []string) {
		status()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func status() {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	stats, sentToday, err := app.agent.Status(ctx)
	if err != nil {
		app.logger.Fatal("reading status", zap.Error(err))
	}

	fmt.Printf("Sightings:   %d\n", stats.Sightings)
	fmt.Printf("Companies:   %d\n", stats.Companies)
	fmt.Printf("Unreachable: %d\n", stats.Unreachable)
	fmt.Println("Drafts:")
	for _, s := range []draft.Status{draft.StatusPending, draft.StatusApproved, draft.StatusSent, draft.StatusDiscarded} {
		fmt.Printf("  %-10s %d\n", string(s)+":", stats.ByStatus[s])
	}
	fmt.Printf("Sent today:  %d\n", sentToday)
	if app.cfg.Limits != nil && app.cfg.Limits.PerDay > 0 {
		fmt.Printf("Daily limit: %d\n", app.cfg.Limits.PerDay)
	}
}
