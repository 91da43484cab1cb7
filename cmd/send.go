package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/reacher-cli/reacher/internal/draft"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sendCmd = &cobra.Command{
	Use:   "send [id]",
	Short: "Deliver approved drafts, or one specific draft, over SMTP",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		send(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().Bool("all", false, "also send pending drafts, skipping review")
	sendCmd.Flags().Bool("dry-run", false, "print the send queue instead of sending")
}

func send(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	includePending := cmd.Flag("all").Value.String() == "true"
	dryRun := cmd.Flag("dry-run").Value.String() == "true"

	app, err := newApplication(ctx, appOptions{deliver: !dryRun})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	if dryRun {
		if err := printSendQueue(ctx, app, includePending); err != nil {
			app.logger.Fatal("listing the send queue", zap.Error(err))
		}
		return
	}

	if len(args) == 1 {
		id, err := parseDraftID(args[0])
		if err != nil {
			app.logger.Fatal("sending a draft", zap.Error(err))
		}
		if err := app.manager.Send(ctx, id, includePending); err != nil {
			app.logger.Fatal("sending a draft", zap.Int64("id", id), zap.Error(err))
		}
		return
	}

	summary, err := app.agent.SendApproved(ctx, includePending)
	if err != nil {
		app.logger.Fatal("sending failed", zap.Error(err))
	}

	app.logger.Info("sending finished",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
}

// printSendQueue lists what a real send would pick up, oldest first.
func printSendQueue(ctx context.Context, app *application, includePending bool) error {
	queue, err := app.store.Drafts(ctx, draft.StatusApproved)
	if err != nil {
		return err
	}
	if includePending {
		pending, err := app.store.Drafts(ctx, draft.StatusPending)
		if err != nil {
			return err
		}
		queue = append(queue, pending...)
	}

	if len(queue) == 0 {
		app.logger.Info("send queue is empty")
		return nil
	}

	for i := len(queue) - 1; i >= 0; i-- {
		d := queue[i]
		fmt.Printf("%d\t%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Company, d.JobTitle, d.ToEmail)
	}

	fields := []zap.Field{zap.Int("queued", len(queue))}
	if app.cfg.Limits != nil && (app.cfg.Limits.PerRun > 0 || app.cfg.Limits.PerDay > 0) {
		fields = append(fields,
			zap.Int("per_run_limit", app.cfg.Limits.PerRun),
			zap.Int("per_day_limit", app.cfg.Limits.PerDay),
		)
	}
	app.logger.Info("send queue", fields...)
	return nil
}
