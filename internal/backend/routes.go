package backend

import (
	"net/url"

	"reelsmith/internal/jobs"
)

// submitRoutes holds the POST path for each job kind. %s is the escaped
// request target.
var submitRoutes = map[jobs.Kind]string{
	jobs.KindExtractCharacters:       "/chapters/%s/extract-characters",
	jobs.KindGenerateAvatar:          "/characters/%s/generate",
	jobs.KindBatchAvatars:            "/projects/%s/characters/batch-generate",
	jobs.KindExtractScenes:           "/chapters/%s/generate-script",
	jobs.KindExtractShots:            "/scripts/%s/extract-shots",
	jobs.KindExtractSceneShots:       "/scenes/%s/extract-shots",
	jobs.KindGenerateKeyframe:        "/shots/%s/generate-keyframe",
	jobs.KindBatchKeyframes:          "/scripts/%s/generate-keyframes",
	jobs.KindCreateTransitions:       "/scripts/%s/create-transitions",
	jobs.KindGenerateTransitionVideo: "/transitions/%s/generate-video",
	jobs.KindBatchTransitionVideos:   "/scripts/%s/generate-transition-videos",
}

const (
	chapterPath     = "/chapters/%s"
	scriptPath      = "/chapters/%s/script"
	scriptShotsPath = "/scripts/%s"
	charactersPath  = "/projects/%s/characters"
	transitionsPath = "/scripts/%s/transitions"
	taskPath        = "/tasks/%s"
)

func escape(id string) string { return url.PathEscape(id) }
