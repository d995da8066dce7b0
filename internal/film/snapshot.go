package film

import "slices"

// Collection is one entity slice as returned by the entity source. Stage
// selects which field is meaningful:
//
//	StageCharacter  Characters
//	StageScene      Script (nil when the chapter has no script yet)
//	StageShot       Shots
//	StageTransition Transitions
type Collection struct {
	Stage       Stage
	Script      *Script
	Characters  []Character
	Shots       []Shot
	Transitions []Transition
}

// Empty returns the initial-state collection for a stage.
func Empty(stage Stage) Collection {
	return Collection{Stage: stage}
}

// Len reports the number of entities in the collection. A script counts its scenes.
func (c Collection) Len() int {
	switch c.Stage {
	case StageCharacter:
		return len(c.Characters)
	case StageScene:
		if c.Script == nil {
			return 0
		}
		return len(c.Script.Scenes)
	case StageShot, StageKeyframe:
		return len(c.Shots)
	case StageTransition:
		return len(c.Transitions)
	default:
		return 0
	}
}

// Clone returns a deep copy with each ordered slice sorted by OrderIndex.
func (c Collection) Clone() Collection {
	out := Collection{Stage: c.Stage}
	if c.Script != nil {
		script := cloneScript(*c.Script)
		out.Script = &script
	}
	out.Characters = cloneCharacters(c.Characters)
	out.Shots = cloneShots(c.Shots)
	out.Transitions = slices.Clone(c.Transitions)
	SortTransitions(out.Transitions)
	return out
}

// Snapshot is an immutable view of one chapter's five collections.
type Snapshot struct {
	Chapter     Chapter
	Script      *Script
	Characters  []Character
	Transitions []Transition
	// Version is the store revision the snapshot was taken at. Zero for
	// snapshots built outside a store.
	Version uint64

	shots []Shot
}

// NewSnapshot builds a snapshot from deep copies of the supplied collections.
func NewSnapshot(chapter Chapter, script *Script, characters []Character, shots []Shot, transitions []Transition) Snapshot {
	snap := Snapshot{
		Chapter:     chapter,
		Characters:  cloneCharacters(characters),
		Transitions: slices.Clone(transitions),
		shots:       cloneShots(shots),
	}
	if script != nil {
		s := cloneScript(*script)
		snap.Script = &s
	}
	SortTransitions(snap.Transitions)
	return snap
}

// Scenes returns the script's scenes ordered by OrderIndex.
func (s Snapshot) Scenes() []Scene {
	if s.Script == nil {
		return nil
	}
	return s.Script.Scenes
}

// Shots returns the union of shots across the script's scenes, ordered by
// scene order then shot order. Shots whose parent scene is not present are
// excluded.
func (s Snapshot) Shots() []Shot {
	scenes := s.Scenes()
	if len(scenes) == 0 || len(s.shots) == 0 {
		return nil
	}
	out := make([]Shot, 0, len(s.shots))
	for _, scene := range scenes {
		out = append(out, s.ShotsForScene(scene.ID)...)
	}
	return out
}

// ShotsForScene returns the shots of one scene ordered by OrderIndex.
func (s Snapshot) ShotsForScene(sceneID string) []Shot {
	var out []Shot
	for _, shot := range s.shots {
		if shot.SceneID == sceneID {
			out = append(out, shot)
		}
	}
	return out
}

// ShotByID finds a shot whose parent scene is present.
func (s Snapshot) ShotByID(id string) (Shot, bool) {
	if id == "" {
		return Shot{}, false
	}
	for _, shot := range s.Shots() {
		if shot.ID == id {
			return shot, true
		}
	}
	return Shot{}, false
}

// SceneByID finds a scene of the script.
func (s Snapshot) SceneByID(id string) (Scene, bool) {
	for _, scene := range s.Scenes() {
		if scene.ID == id {
			return scene, true
		}
	}
	return Scene{}, false
}

// CharacterByID finds a character.
func (s Snapshot) CharacterByID(id string) (Character, bool) {
	for _, c := range s.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}

// TransitionByID finds a transition.
func (s Snapshot) TransitionByID(id string) (Transition, bool) {
	for _, t := range s.Transitions {
		if t.ID == id {
			return t, true
		}
	}
	return Transition{}, false
}

// ScriptID returns the script identifier or "" when no script exists.
func (s Snapshot) ScriptID() string {
	if s.Script == nil {
		return ""
	}
	return s.Script.ID
}

func cloneScript(script Script) Script {
	out := script
	out.Scenes = make([]Scene, len(script.Scenes))
	for i, scene := range script.Scenes {
		scene.Characters = slices.Clone(scene.Characters)
		out.Scenes[i] = scene
	}
	SortScenes(out.Scenes)
	return out
}

func cloneShots(shots []Shot) []Shot {
	if shots == nil {
		return nil
	}
	out := make([]Shot, len(shots))
	for i, shot := range shots {
		shot.Characters = slices.Clone(shot.Characters)
		out[i] = shot
	}
	SortShots(out)
	return out
}

func cloneCharacters(characters []Character) []Character {
	return slices.Clone(characters)
}
