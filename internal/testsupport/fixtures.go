package testsupport

import (
	"fmt"

	"reelsmith/internal/film"
)

// Script builds a script with the given number of scenes named
// "<scriptID>-scene-<n>".
func Script(scriptID string, scenes int) film.Script {
	script := film.Script{ID: scriptID, Status: "completed"}
	for i := range scenes {
		script.Scenes = append(script.Scenes, film.Scene{
			ID:          fmt.Sprintf("%s-scene-%d", scriptID, i+1),
			ScriptID:    scriptID,
			OrderIndex:  i,
			Description: fmt.Sprintf("scene %d", i+1),
		})
	}
	return script
}

// Shots builds perScene shots for every scene of script. withKeyframes
// controls whether each shot already carries a keyframe.
func Shots(script film.Script, perScene int, withKeyframes bool) []film.Shot {
	var shots []film.Shot
	for _, scene := range script.Scenes {
		for i := range perScene {
			shot := film.Shot{
				ID:          fmt.Sprintf("%s-shot-%d", scene.ID, i+1),
				SceneID:     scene.ID,
				OrderIndex:  i,
				Description: fmt.Sprintf("shot %d", i+1),
			}
			if withKeyframes {
				shot.KeyframeRef = "https://cdn.test/" + shot.ID + ".png"
			}
			shots = append(shots, shot)
		}
	}
	return shots
}

// Transitions links consecutive shots.
func Transitions(scriptID string, shots []film.Shot) []film.Transition {
	var out []film.Transition
	for i := 0; i+1 < len(shots); i++ {
		out = append(out, film.Transition{
			ID:           fmt.Sprintf("%s-tr-%d", scriptID, i+1),
			ScriptID:     scriptID,
			OrderIndex:   i,
			FromShotID:   shots[i].ID,
			ToShotID:     shots[i+1].ID,
			FromKeyframe: shots[i].KeyframeRef,
			ToKeyframe:   shots[i+1].KeyframeRef,
			Status:       film.TransitionPending,
		})
	}
	return out
}
