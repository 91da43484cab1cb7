package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var approveCmd = &cobra.Command{
	Use:   "approve [id...]",
	Short: "Approve pending drafts for sending",
	Run: func(cmd *cobra.Command, args []string) {
		approve(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().Bool("all", false, "approve every pending draft")
}

func approve(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	if cmd.Flag("all").Value.String() == "true" {
		count, err := app.manager.ApproveAll(ctx)
		if err != nil {
			app.logger.Fatal("approving drafts", zap.Error(err), zap.Int("approved", count))
		}
		app.logger.Info("drafts approved", zap.Int("count", count))
		return
	}

	if len(args) == 0 {
		app.logger.Fatal("a draft id or --all is required")
	}

	for _, arg := range args {
		id, err := parseDraftID(arg)
		if err != nil {
			app.logger.Fatal("approving a draft", zap.Error(err))
		}
		if err := app.manager.Approve(ctx, id); err != nil {
			app.logger.Fatal("approving a draft", zap.Int64("id", id), zap.Error(err))
		}
		app.logger.Info("draft approved", zap.Int64("id", id))
	}
}
