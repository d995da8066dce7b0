package film

import (
	"fmt"
	"strings"
)

// Stage is one pipeline phase.
type Stage int

const (
	StageCharacter Stage = iota
	StageScene
	StageShot
	StageKeyframe
	StageTransition
	StageAssembly
)

var stageNames = [...]string{
	StageCharacter:  "character",
	StageScene:      "scene",
	StageShot:       "shot",
	StageKeyframe:   "keyframe",
	StageTransition: "transition",
	StageAssembly:   "assembly",
}

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{StageCharacter, StageScene, StageShot, StageKeyframe, StageTransition, StageAssembly}
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s >= StageCharacter && s <= StageAssembly }

// ParseStage converts a stage name (case-insensitive) to a Stage.
func ParseStage(value string) (Stage, error) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for i, name := range stageNames {
		if name == needle {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", value)
}
