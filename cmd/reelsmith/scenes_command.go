package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/workflow"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "Generate the chapter script and its scenes",
	}

	var asJSON bool
	list := chapterCommand(ctx, "list", "List the script's scenes", nil,
		func(_ context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			snap := session.Snapshot()
			if asJSON {
				return writeJSON(cmd, snap.Script)
			}
			scenes := snap.Scenes()
			if len(scenes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scenes yet; run `reelsmith scenes extract`")
				return nil
			}
			rows := make([][]string, 0, len(scenes))
			for _, sc := range scenes {
				rows = append(rows, []string{
					strconv.Itoa(sc.OrderIndex + 1), sc.ID, truncate(sc.Description, 60),
					strconv.Itoa(len(snap.ShotsForScene(sc.ID))),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "ID", "Scene", "Shots"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
			return nil
		})
	list.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	var extractFlags jobFlags
	extract := chapterCommand(ctx, "extract", "Generate the script and extract scenes", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			job, err := session.Scenes.Extract(runCtx, session.Chapter().ID, extractFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, extractFlags.noWait)
		})
	extractFlags.bind(extract)

	del := deleteCommand(ctx, "scene", func(s *workflow.Session) func(context.Context, string) error {
		return s.Scenes.Delete
	})

	cmd.AddCommand(list, extract, del)
	return cmd
}
