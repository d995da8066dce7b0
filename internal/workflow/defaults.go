package workflow

import (
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/jobs"
)

// Defaults fill request fields the caller leaves empty.
type Defaults struct {
	APIKeyID   string
	TextModel  string
	ImageModel string
	VideoModel string
	Style      string
}

// DefaultsFromConfig reads the backend and generation sections.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	if cfg == nil {
		return Defaults{}
	}
	return Defaults{
		APIKeyID:   cfg.Backend.APIKeyID,
		TextModel:  cfg.Generation.TextModel,
		ImageModel: cfg.Generation.ImageModel,
		VideoModel: cfg.Generation.VideoModel,
		Style:      cfg.Generation.Style,
	}
}

func (d Defaults) credentials(kind jobs.Kind, in jobs.Credentials) jobs.Credentials {
	out := in
	if strings.TrimSpace(out.APIKeyID) == "" {
		out.APIKeyID = d.APIKeyID
	}
	if strings.TrimSpace(out.Model) == "" {
		if imageKind(kind) {
			out.Model = d.ImageModel
		} else {
			out.Model = d.TextModel
		}
	}
	return out
}

func (d Defaults) params(kind jobs.Kind, in jobs.Params) jobs.Params {
	out := in
	switch kind {
	case jobs.KindGenerateAvatar, jobs.KindBatchAvatars:
		if strings.TrimSpace(out.Style) == "" {
			out.Style = d.Style
		}
	case jobs.KindGenerateTransitionVideo, jobs.KindBatchTransitionVideos:
		if strings.TrimSpace(out.VideoModel) == "" {
			out.VideoModel = d.VideoModel
		}
	}
	return out
}

func imageKind(kind jobs.Kind) bool {
	switch kind {
	case jobs.KindGenerateAvatar, jobs.KindBatchAvatars, jobs.KindGenerateKeyframe, jobs.KindBatchKeyframes:
		return true
	default:
		return false
	}
}
