package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/reacher-cli/reacher/internal/draft"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Compose outreach drafts for every scouted company that has none yet",
	Run: func(_ *cobra.Command, _ []string) {
		draftPending()
	},
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List drafts, optionally filtered by status",
	Run: func(cmd *cobra.Command, _ []string) {
		listDrafts(cmd)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one draft in full",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		showDraft(args[0])
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(showCmd)

	draftsCmd.Flags().StringP("status", "s", "", "filter by status: pending, approved, sent or discarded")
}

func draftPending() {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{drafter: true})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	summary, err := app.agent.DraftPending(ctx)
	if err != nil {
		app.logger.Fatal("drafting failed", zap.Error(err))
	}

	app.logger.Info("drafting finished",
		zap.Int("companies", summary.Companies),
		zap.Int("drafted", summary.Drafted),
		zap.Int("unreachable", summary.Unreachable),
		zap.Int("fallback", summary.Fallback),
	)

	if summary.Drafted > 0 {
		app.logger.Info("drafts are waiting for review",
			zap.String("hint", "run 'reacher review' to approve them"),
		)
	}
}

func listDrafts(cmd *cobra.Command) {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	var status draft.Status
	if raw := cmd.Flag("status").Value.String(); raw != "" {
		status, err = draft.ParseStatus(raw)
		if err != nil {
			app.logger.Fatal("listing drafts", zap.Error(err))
		}
	}

	drafts, err := app.store.Drafts(ctx, status)
	if err != nil {
		app.logger.Fatal("listing drafts", zap.Error(err))
	}

	if len(drafts) == 0 {
		app.logger.Info("no drafts found")
		return
	}

	for _, d := range drafts {
		fmt.Printf("%d\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Status, d.Company, d.JobTitle, d.ToEmail, d.Source)
	}
}

func showDraft(rawID string) {
	ctx := context.Background()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		log.Fatalf("starting up: %s", err)
	}
	defer app.close()

	id, err := parseDraftID(rawID)
	if err != nil {
		app.logger.Fatal("showing a draft", zap.Error(err))
	}

	d, err := app.store.Draft(ctx, id)
	if err != nil {
		app.logger.Fatal("showing a draft", zap.Error(err))
	}

	fmt.Printf("ID:      %d\n", d.ID)
	fmt.Printf("Status:  %s\n", d.Status)
	fmt.Printf("Company: %s\n", d.Company)
	fmt.Printf("Role:    %s\n", d.JobTitle)
	fmt.Printf("Posting: %s (%s)\n", d.JobURL, d.Source)
	fmt.Printf("To:      %s (%s)\n", d.ToEmail, d.EmailTier)
	if d.SentAt != nil {
		fmt.Printf("Sent:    %s\n", d.SentAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Printf("\nSubject: %s\n\n%s\n", d.Subject, d.Body)
}

func parseDraftID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid draft id %q", raw)
	}
	return id, nil
}
