package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/film"
	"reelsmith/internal/stage"
	"reelsmith/internal/workflow"
)

type statusView struct {
	ChapterID   string         `json:"chapter_id"`
	ProjectID   string         `json:"project_id,omitempty"`
	ScriptID    string         `json:"script_id,omitempty"`
	Stage       string         `json:"stage"`
	StageIndex  int            `json:"stage_index"`
	Next        string         `json:"next"`
	Counts      map[string]int `json:"counts"`
	Keyframed   int            `json:"keyframed_shots"`
	Avatars     int            `json:"characters_with_avatar"`
	Videos      int            `json:"transition_videos"`
	ActiveJobs  int            `json:"active_jobs"`
	InFlightIDs []string       `json:"in_flight,omitempty"`
}

func buildStatusView(session *workflow.Session) statusView {
	snap := session.Snapshot()
	idx := stage.Derive(snap)
	shots := snap.Shots()
	view := statusView{
		ChapterID:  snap.Chapter.ID,
		ProjectID:  snap.Chapter.ProjectID,
		ScriptID:   snap.ScriptID(),
		Stage:      idx.String(),
		StageIndex: int(idx),
		Next:       idx.Next(),
		Counts: map[string]int{
			"characters":  len(snap.Characters),
			"scenes":      len(snap.Scenes()),
			"shots":       len(shots),
			"transitions": len(snap.Transitions),
		},
		ActiveJobs: len(session.ActiveJobs()),
	}
	for _, shot := range shots {
		if shot.HasKeyframe() {
			view.Keyframed++
		}
	}
	for _, c := range snap.Characters {
		if c.HasAvatar() {
			view.Avatars++
		}
	}
	for _, tr := range snap.Transitions {
		if tr.HasVideo() {
			view.Videos++
		}
	}
	for _, st := range film.Stages() {
		for _, id := range session.InFlight(st) {
			view.InFlightIDs = append(view.InFlightIDs, st.String()+"/"+id)
		}
	}
	return view
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := chapterCommand(ctx, "status", "Show where a chapter stands in the pipeline", nil,
		func(_ context.Context, cmd *cobra.Command, session *workflow.Session, _ []string) error {
			view := buildStatusView(session)
			if asJSON {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Chapter "+view.ChapterID, colorize)
			current := stage.Index(view.StageIndex)
			for idx := stage.NeedsScript; idx <= stage.ReadyForAssembly; idx++ {
				kind := statusPending
				switch {
				case idx < current:
					kind = statusOK
				case idx == current:
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine(stepLabel(idx.String()), kind, stepDetail(idx, view), colorize))
			}
			lines = append(lines, "", renderStatusLine("Next", statusInfo, view.Next, colorize))
			if len(view.InFlightIDs) > 0 {
				lines = append(lines, renderStatusLine("Running", statusInfo, strings.Join(view.InFlightIDs, ", "), colorize))
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		})
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func stepDetail(idx stage.Index, view statusView) string {
	switch idx {
	case stage.NeedsScript:
		if view.ScriptID == "" {
			return "no script"
		}
		return view.ScriptID
	case stage.NeedsScenes:
		return fmt.Sprintf("%d scenes, %d characters (%d with avatar)", view.Counts["scenes"], view.Counts["characters"], view.Avatars)
	case stage.NeedsShots:
		return fmt.Sprintf("%d shots", view.Counts["shots"])
	case stage.NeedsKeyframes:
		return fmt.Sprintf("%d/%d keyframes", view.Keyframed, view.Counts["shots"])
	case stage.NeedsTransitions:
		return fmt.Sprintf("%d transitions, %d videos", view.Counts["transitions"], view.Videos)
	default:
		return ""
	}
}
