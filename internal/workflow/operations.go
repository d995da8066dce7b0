package workflow

import (
	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
)

type operation int

const (
	opExtract operation = iota
	opGenerate
	opBatch
)

// operations maps each entity slice to the job kinds its manager submits.
// A zero entry means the slice does not offer the operation.
var operations = map[film.Stage][3]jobs.Kind{
	film.StageCharacter: {
		opExtract:  jobs.KindExtractCharacters,
		opGenerate: jobs.KindGenerateAvatar,
		opBatch:    jobs.KindBatchAvatars,
	},
	film.StageScene: {
		opExtract: jobs.KindExtractScenes,
	},
	film.StageShot: {
		opExtract:  jobs.KindExtractShots,
		opGenerate: jobs.KindGenerateKeyframe,
		opBatch:    jobs.KindBatchKeyframes,
	},
	film.StageTransition: {
		opExtract:  jobs.KindCreateTransitions,
		opGenerate: jobs.KindGenerateTransitionVideo,
		opBatch:    jobs.KindBatchTransitionVideos,
	},
}

func kindFor(slice film.Stage, op operation) (jobs.Kind, bool) {
	ops, ok := operations[slice]
	if !ok {
		return 0, false
	}
	kind := ops[op]
	return kind, kind.Valid()
}
