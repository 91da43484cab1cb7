package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace the subject or body of a draft before it is sent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		edit(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().String("subject", "", "new subject line")
	editCmd.Flags().String("body-file", "", "file with the new body text")
}

func edit(cmd *cobra.Command, rawID string) {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	id, err := parseDraftID(rawID)
	if err != nil {
		app.logger.Fatal("editing a draft", zap.Error(err))
	}

	subject := cmd.Flag("subject").Value.String()
	bodyFile := cmd.Flag("body-file").Value.String()
	if subject == "" && bodyFile == "" {
		app.logger.Fatal("nothing to change", zap.String("hint", "pass --subject or --body-file"))
	}

	d, err := app.store.Draft(ctx, id)
	if err != nil {
		app.logger.Fatal("editing a draft", zap.Error(err))
	}

	if subject == "" {
		subject = d.Subject
	}

	body := d.Body
	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			app.logger.Fatal("reading the new body", zap.Error(err))
		}
		body = string(data)
	}

	if err := app.manager.Edit(ctx, id, subject, body); err != nil {
		app.logger.Fatal("editing a draft", zap.Error(err))
	}

	app.logger.Info("draft updated", zap.Int64("id", id))
}
