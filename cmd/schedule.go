package cmd

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/reacher-cli/reacher/internal/scheduler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on an interval until interrupted",
	Run: func(cmd *cobra.Command, _ []string) {
		schedule(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().Duration("interval", 6*time.Hour, "time between pipeline runs")
	scheduleCmd.Flags().BoolP("yes", "y", false, "approve and send fresh drafts without review")
}

func schedule(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	autoSend := cmd.Flag("yes").Value.String() == "true"

	interval, err := time.ParseDuration(cmd.Flag("interval").Value.String())
	if err != nil {
		log.Fatalf("parsing the interval: %s", err)
	}

	app, err := newApplication(ctx, appOptions{drafter: true, deliver: autoSend})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	task := func(ctx context.Context) error {
		_, err := app.agent.Run(ctx, app.searchParams(), autoSend)
		return err
	}

	sched, err := scheduler.New(interval, task, app.logger)
	if err != nil {
		app.logger.Fatal("building the scheduler", zap.Error(err))
	}

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Fatal("scheduler stopped", zap.Error(err))
	}
}
