package main

import (
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		chapterID string
		limit     int
		follow    bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			filter := logs.Filter{ChapterID: strings.TrimSpace(chapterID), Limit: limit}

			records, offset, err := logs.Read(path, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				printRecord(out, r)
			}
			if !follow {
				return nil
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			_, err = logs.Follow(runCtx, path, offset, filter, 0, func(r logs.Record) {
				printRecord(out, r)
			})
			if err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chapterID, "chapter", "", "Only show lines for this chapter")
	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	return cmd
}

func printRecord(out io.Writer, r logs.Record) {
	if r.Message == "" {
		fmt.Fprintln(out, r.Raw)
		return
	}
	ts := r.Time
	if parsed, err := time.Parse(time.RFC3339Nano, r.Time); err == nil {
		ts = parsed.Local().Format("2006-01-02 15:04:05")
	}
	subject := strings.Trim(r.ChapterID+"/"+r.Stage, "/")
	line := fmt.Sprintf("%s %-5s", ts, strings.ToUpper(r.Level))
	if subject != "" {
		line += " [" + subject + "]"
	}
	line += " " + r.Message
	if r.JobID != "" {
		line += " job=" + r.JobID
	}
	fmt.Fprintln(out, line)
}
