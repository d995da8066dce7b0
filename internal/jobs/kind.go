package jobs

import (
	"fmt"
	"strings"

	"reelsmith/internal/film"
)

// Kind selects the backend operation a job performs.
type Kind int

const (
	KindExtractCharacters Kind = iota + 1
	KindGenerateAvatar
	KindBatchAvatars
	KindExtractScenes
	KindExtractShots
	KindExtractSceneShots
	KindGenerateKeyframe
	KindBatchKeyframes
	KindCreateTransitions
	KindGenerateTransitionVideo
	KindBatchTransitionVideos
)

type kindInfo struct {
	name  string
	stage film.Stage
	batch bool
}

var kindTable = map[Kind]kindInfo{
	KindExtractCharacters:       {name: "extract_characters", stage: film.StageCharacter},
	KindGenerateAvatar:          {name: "generate_avatar", stage: film.StageCharacter},
	KindBatchAvatars:            {name: "batch_avatars", stage: film.StageCharacter, batch: true},
	KindExtractScenes:           {name: "extract_scenes", stage: film.StageScene},
	KindExtractShots:            {name: "extract_shots", stage: film.StageShot},
	KindExtractSceneShots:       {name: "extract_scene_shots", stage: film.StageShot},
	KindGenerateKeyframe:        {name: "generate_keyframe", stage: film.StageKeyframe},
	KindBatchKeyframes:          {name: "batch_keyframes", stage: film.StageKeyframe, batch: true},
	KindCreateTransitions:       {name: "create_transitions", stage: film.StageTransition},
	KindGenerateTransitionVideo: {name: "generate_transition_video", stage: film.StageTransition},
	KindBatchTransitionVideos:   {name: "batch_transition_videos", stage: film.StageTransition, batch: true},
}

// Kinds lists every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindTable))
	for k := KindExtractCharacters; k <= KindBatchTransitionVideos; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Stage returns the pipeline stage the kind belongs to.
func (k Kind) Stage() film.Stage { return kindTable[k].stage }

// Batch reports whether the kind covers many entities with one job whose
// result carries aggregate counts.
func (k Kind) Batch() bool { return kindTable[k].batch }

// ParseKind converts a kind name back to a Kind.
func ParseKind(value string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for k, info := range kindTable {
		if info.name == needle {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown job kind %q", value)
}
