package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/film"
	"reelsmith/internal/workflow"
)

func newTransitionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Create transitions and generate their videos",
	}

	var asJSON bool
	list := chapterCommand(ctx, "list", "List transitions", nil,
		func(_ context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			snap := session.Snapshot()
			if asJSON {
				return writeJSON(cmd, snap.Transitions)
			}
			if len(snap.Transitions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transitions yet; run `reelsmith transitions create`")
				return nil
			}
			rows := make([][]string, 0, len(snap.Transitions))
			for _, tr := range snap.Transitions {
				rows = append(rows, []string{
					strconv.Itoa(tr.OrderIndex + 1), tr.ID, tr.FromShotID + " -> " + tr.ToShotID,
					string(tr.Status), yesNo(tr.Eligible(snap)), yesNo(tr.HasVideo()),
					busyLabel(session, film.StageTransition, tr.ID),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "ID", "Shots", "Status", "Ready", "Video", "Job"}, rows,
				[]columnAlignment{alignRight}))
			return nil
		})
	list.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	var createFlags jobFlags
	create := chapterCommand(ctx, "create", "Create transitions between consecutive shots", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			scriptID, err := requireScript(session)
			if err != nil {
				return err
			}
			job, err := session.Transitions.Extract(runCtx, scriptID, createFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, createFlags.noWait)
		})
	createFlags.bind(create)

	var videoFlags jobFlags
	video := chapterCommand(ctx, "video", "Generate one transition video", []string{"transition-id"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			job, err := session.Transitions.GenerateOne(runCtx, args[0], videoFlags.credentials(), videoFlags.params())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, videoFlags.noWait)
		})
	videoFlags.bind(video)
	videoFlags.bindPrompt(video)
	videoFlags.bindVideoModel(video)

	var batchFlags jobFlags
	videos := chapterCommand(ctx, "videos", "Generate videos for every transition", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			scriptID, err := requireScript(session)
			if err != nil {
				return err
			}
			job, err := session.Transitions.GenerateBatch(runCtx, scriptID, batchFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, batchFlags.noWait)
		})
	batchFlags.bind(videos)

	prompt := chapterCommand(ctx, "prompt", "Store the video prompt for one transition", []string{"transition-id", "prompt"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			if err := session.Transitions.SetPrompt(runCtx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated prompt for transition %s\n", args[0])
			return nil
		})

	del := deleteCommand(ctx, "transition", func(s *workflow.Session) func(context.Context, string) error {
		return s.Transitions.Delete
	})

	cmd.AddCommand(list, create, video, videos, prompt, del)
	return cmd
}
