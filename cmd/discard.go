package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var discardCmd = &cobra.Command{
	Use:   "discard <id...>",
	Short: "Retire drafts so they will never be sent",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		discard(args)
	},
}

func init() {
	rootCmd.AddCommand(discardCmd)
}

func discard(args []string) {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	for _, arg := range args {
		id, err := parseDraftID(arg)
		if err != nil {
			app.logger.Fatal("discarding a draft", zap.Error(err))
		}
		if err := app.manager.Discard(ctx, id); err != nil {
			app.logger.Fatal("discarding a draft", zap.Int64("id", id), zap.Error(err))
		}
		app.logger.Info("draft discarded", zap.Int64("id", id))
	}
}
