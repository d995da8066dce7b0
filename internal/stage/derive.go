// Package stage derives which pipeline step a chapter is at from the data
// present in an entity snapshot. Derivation is a pure function; it never
// consults in-flight job state.
package stage

import (
	"fmt"

	"reelsmith/internal/film"
)

// Index is the current pipeline step, 0 through 5.
type Index int

const (
	// NeedsScript: no script exists for the chapter.
	NeedsScript Index = iota
	// NeedsScenes: the script has no scenes.
	NeedsScenes
	// NeedsShots: no scene has shots.
	NeedsShots
	// NeedsKeyframes: at least one shot lacks a keyframe.
	NeedsKeyframes
	// NeedsTransitions: every shot has a keyframe but no transitions exist.
	NeedsTransitions
	// ReadyForAssembly is terminal.
	ReadyForAssembly
)

var labels = [...]string{
	NeedsScript:      "script",
	NeedsScenes:      "scenes",
	NeedsShots:       "shots",
	NeedsKeyframes:   "keyframes",
	NeedsTransitions: "transitions",
	ReadyForAssembly: "assembly",
}

var nextSteps = [...]string{
	NeedsScript:      "extract scenes to create the script",
	NeedsScenes:      "extract scenes",
	NeedsShots:       "extract shots from the scenes",
	NeedsKeyframes:   "generate keyframes for every shot",
	NeedsTransitions: "create transitions between shots",
	ReadyForAssembly: "generate transition videos and assemble the film",
}

func (i Index) String() string {
	if i < NeedsScript || i > ReadyForAssembly {
		return fmt.Sprintf("index(%d)", int(i))
	}
	return labels[i]
}

// Next describes the action the consumer should offer at this step.
func (i Index) Next() string {
	if i < NeedsScript || i > ReadyForAssembly {
		return ""
	}
	return nextSteps[i]
}

// Stage maps the index to the pipeline stage whose work is pending.
func (i Index) Stage() film.Stage {
	switch i {
	case NeedsScript, NeedsScenes:
		return film.StageScene
	case NeedsShots:
		return film.StageShot
	case NeedsKeyframes:
		return film.StageKeyframe
	case NeedsTransitions:
		return film.StageTransition
	default:
		return film.StageAssembly
	}
}

// Derive computes the current step from snap.
func Derive(snap film.Snapshot) Index {
	if snap.Script == nil {
		return NeedsScript
	}
	if len(snap.Scenes()) == 0 {
		return NeedsScenes
	}
	shots := snap.Shots()
	if len(shots) == 0 {
		return NeedsShots
	}
	for _, shot := range shots {
		if !shot.HasKeyframe() {
			return NeedsKeyframes
		}
	}
	if len(snap.Transitions) == 0 {
		return NeedsTransitions
	}
	return ReadyForAssembly
}
