package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/reacher-cli/reacher/internal/draft"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptApprove = "Approve"
	PromptDiscard = "Discard"
	PromptSkip    = "Skip"
	PromptQuit    = "Quit"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk through pending drafts and approve or discard each one",
	Run: func(_ *cobra.Command, _ []string) {
		review()
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review() {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	pending, err := app.store.Drafts(ctx, draft.StatusPending)
	if err != nil {
		app.logger.Fatal("loading pending drafts", zap.Error(err))
	}

	if len(pending) == 0 {
		app.logger.Info("nothing to review")
		return
	}

	app.logger.Info("starting the review", zap.Int("pending", len(pending)))

	approved, discarded := 0, 0
	// Drafts lists newest first; review the oldest first.
	for i := len(pending) - 1; i >= 0; i-- {
		d := pending[i]

		fmt.Printf("\n[%d] %s / %s\n", d.ID, d.Company, d.JobTitle)
		fmt.Printf("To: %s (%s)\nPosting: %s\n", d.ToEmail, d.EmailTier, d.JobURL)
		fmt.Printf("\nSubject: %s\n\n%s\n\n", d.Subject, d.Body)

		prompt := promptui.Select{
			Label: "Decision",
			Items: []string{PromptApprove, PromptDiscard, PromptSkip, PromptQuit},
		}

		_, action, err := prompt.Run()
		if err != nil {
			app.logger.Fatal("exiting", zap.Error(err))
		}

		switch action {
		case PromptApprove:
			if err := app.manager.Approve(ctx, d.ID); err != nil {
				app.logger.Fatal("approving a draft", zap.Int64("id", d.ID), zap.Error(err))
			}
			approved++
		case PromptDiscard:
			if err := app.manager.Discard(ctx, d.ID); err != nil {
				app.logger.Fatal("discarding a draft", zap.Int64("id", d.ID), zap.Error(err))
			}
			discarded++
		case PromptSkip:
			continue
		case PromptQuit:
			app.logger.Info("review finished early",
				zap.Int("approved", approved),
				zap.Int("discarded", discarded),
			)
			return
		}
	}

	app.logger.Info("review finished",
		zap.Int("approved", approved),
		zap.Int("discarded", discarded),
		zap.String("hint", "run 'reacher send' to deliver approved drafts"),
	)
}
