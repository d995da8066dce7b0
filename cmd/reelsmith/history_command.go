package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var chapterID, outcome string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded job outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			filter := journal.Filter{
				ChapterID: strings.TrimSpace(chapterID),
				Outcome:   journal.Outcome(strings.TrimSpace(outcome)),
				Limit:     limit,
			}
			entries, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.FinishedAt.Local().Format("2006-01-02 15:04"),
					e.ChapterID,
					e.Kind.String(),
					e.Target,
					string(e.Outcome),
					entryDetail(e),
					e.Duration().Round(time.Second).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Finished", "Chapter", "Kind", "Target", "Outcome", "Detail", "Took"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&chapterID, "chapter", "", "Only show jobs for this chapter")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome (succeeded, failed, cancelled, detached, submission_failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to show (default 50)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	cmd.AddCommand(newHistoryStatsCommand(ctx), newHistoryPruneCommand(ctx))
	return cmd
}

func entryDetail(e journal.Entry) string {
	switch {
	case e.Batch != nil:
		return fmt.Sprintf("%d ok, %d failed", e.Batch.SuccessCount, e.Batch.FailedCount)
	case e.ErrorMessage != "":
		return truncate(e.ErrorMessage, 40)
	default:
		return ""
	}
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [chapter-id]",
		Short: "Count recorded outcomes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()
			var chapterID string
			if len(args) == 1 {
				chapterID = args[0]
			}
			stats, err := store.Stats(cmd.Context(), chapterID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range []journal.Outcome{journal.OutcomeSucceeded, journal.OutcomeFailed, journal.OutcomeCancelled, journal.OutcomeDetached, journal.OutcomeSubmissionFailed} {
				fmt.Fprintf(out, "%-18s %d\n", string(o)+":", stats[o])
			}
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journal entries older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Prune(context.WithoutCancel(cmd.Context()), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}
