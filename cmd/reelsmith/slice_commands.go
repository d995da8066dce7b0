package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/workflow"
)

type chapterRunFunc func(ctx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error

// chapterCommand builds a command whose first argument is the chapter id.
// extra lists the names of the remaining positional arguments.
func chapterCommand(ctx *commandContext, name, short string, extra []string, run chapterRunFunc) *cobra.Command {
	use := name + " <chapter-id>"
	for _, arg := range extra {
		use += " <" + arg + ">"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1 + len(extra)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withChapter(cmd, args[0], func(runCtx context.Context, session *workflow.Session) error {
				return run(runCtx, cmd, session, args[1:])
			})
		},
	}
}

func newSliceCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newCharactersCommand(ctx),
		newScenesCommand(ctx),
		newShotsCommand(ctx),
		newTransitionsCommand(ctx),
	}
}

func deleteCommand(ctx *commandContext, entity string, del func(*workflow.Session) func(context.Context, string) error) *cobra.Command {
	return chapterCommand(ctx, "delete", "Delete one "+entity, []string{entity + "-id"},
		func(runCtx context.Context, cmd *cobra.Command, session *workflow.Session, args []string) error {
			if err := del(session)(runCtx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", entity, args[0])
			return nil
		})
}
