package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/film"
	"reelsmith/internal/workflow"
)

func newCharactersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "characters",
		Aliases: []string{"chars"},
		Short:   "Extract characters and generate their avatars",
	}

	var asJSON bool
	list := chapterCommand(ctx, "list", "List the project's characters", nil,
		func(_ context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			chars := session.Snapshot().Characters
			if asJSON {
				return writeJSON(cmd, chars)
			}
			if len(chars) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No characters yet; run `reelsmith characters extract`")
				return nil
			}
			rows := make([][]string, 0, len(chars))
			for _, c := range chars {
				rows = append(rows, []string{
					c.ID, c.Name, truncate(c.Role, 40), yesNo(c.HasAvatar()),
					busyLabel(session, film.StageCharacter, c.ID),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Role", "Avatar", "Job"}, rows, nil))
			return nil
		})
	list.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	var extractFlags jobFlags
	extract := chapterCommand(ctx, "extract", "Extract characters from the chapter text", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			job, err := session.Characters.Extract(runCtx, session.Chapter().ID, extractFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, extractFlags.noWait)
		})
	extractFlags.bind(extract)

	var genFlags jobFlags
	generate := chapterCommand(ctx, "generate", "Generate one character's avatar", []string{"character-id"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			job, err := session.Characters.GenerateOne(runCtx, args[0], genFlags.credentials(), genFlags.params())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, genFlags.noWait)
		})
	genFlags.bind(generate)
	genFlags.bindPrompt(generate)
	genFlags.bindStyle(generate)

	var batchFlags jobFlags
	batch := chapterCommand(ctx, "batch", "Generate avatars for every character", nil,
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			job, err := session.Characters.GenerateBatch(runCtx, session.ProjectID(), batchFlags.credentials())
			return followJob(runCtx, cmd.OutOrStdout(), job, err, batchFlags.noWait)
		})
	batchFlags.bind(batch)

	avatar := chapterCommand(ctx, "set-avatar", "Use an existing image as a character's avatar", []string{"character-id", "image-ref"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			if err := session.Characters.SetAvatar(runCtx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated avatar for character %s\n", args[0])
			return nil
		})

	del := deleteCommand(ctx, "character", func(s *workflow.Session) func(context.Context, string) error {
		return s.Characters.Delete
	})

	cmd.AddCommand(list, extract, generate, batch, avatar, del)
	return cmd
}
