package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/film"
	"reelsmith/internal/workflow"
)

var errNoScript = errors.New("chapter has no script yet; run `reelsmith scenes extract` first")

func requireScript(session *workflow.Session) (string, error) {
	id := session.ScriptID()
	if id == "" {
		return "", errNoScript
	}
	return id, nil
}

func newShotsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shots",
		Short: "Extract shots and generate keyframes",
	}

	var asJSON bool
	list := chapterCommand(ctx, "list", "List shots in scene order", nil,
		func(_ context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			snap := session.Snapshot()
			shots := snap.Shots()
			if asJSON {
				return writeJSON(cmd, shots)
			}
			if len(shots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No shots yet; run `reelsmith shots extract`")
				return nil
			}
			rows := make([][]string, 0, len(shots))
			for _, shot := range shots {
				scene := "?"
				if sc, ok := snap.SceneByID(shot.SceneID); ok {
					scene = strconv.Itoa(sc.OrderIndex + 1)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%s.%d", scene, shot.OrderIndex+1), shot.ID, truncate(shot.Description, 50),
					yesNo(shot.HasKeyframe()), busyLabel(session, film.StageKeyframe, shot.ID),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "ID", "Shot", "Keyframe", "Job"}, rows, nil))
			return nil
		})
	list.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	var extractFlags jobFlags
	extract := chapterCommand(ctx, "extract", "Extract shots for every scene", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			scriptID, err := requireScript(session)
			if err != nil {
				return err
			}
			job, err := session.Shots.Extract(runCtx, scriptID, extractFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, extractFlags.noWait)
		})
	extractFlags.bind(extract)

	var reFlags jobFlags
	reextract := chapterCommand(ctx, "reextract", "Re-extract the shots of one scene", []string{"scene-id"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			job, err := session.Shots.ReextractScene(runCtx, args[0], reFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, reFlags.noWait)
		})
	reFlags.bind(reextract)

	var keyFlags jobFlags
	keyframe := chapterCommand(ctx, "keyframe", "Generate one shot's keyframe", []string{"shot-id"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			job, err := session.Shots.GenerateOne(runCtx, args[0], keyFlags.credentials(), keyFlags.params())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, keyFlags.noWait)
		})
	keyFlags.bind(keyframe)
	keyFlags.bindPrompt(keyframe)

	var batchFlags jobFlags
	keyframes := chapterCommand(ctx, "keyframes", "Generate keyframes for every shot", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			scriptID, err := requireScript(session)
			if err != nil {
				return err
			}
			job, err := session.Shots.GenerateBatch(runCtx, scriptID, batchFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, batchFlags.noWait)
		})
	batchFlags.bind(keyframes)

	del := deleteCommand(ctx, "shot", func(s *workflow.Session) func(context.Context, string) error {
		return s.Shots.Delete
	})

	cmd.AddCommand(list, extract, reextract, keyframe, keyframes, del)
	return cmd
}
