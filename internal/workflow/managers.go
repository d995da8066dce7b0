package workflow

import (
	"context"
	"fmt"
	"strings"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/services"
	"reelsmith/internal/tracker"
)

// CharacterManager handles the project's characters and their avatars.
// Characters belong to the project; extraction reads one chapter.
type CharacterManager struct {
	*stageManager
}

// Extract submits character extraction for chapterID.
func (m *CharacterManager) Extract(ctx context.Context, chapterID string, creds jobs.Credentials) (*Job, error) {
	chapterID, err := required(chapterID, "character", "extract", "chapter id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opExtract)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, chapterID, chapterID, creds, jobs.Params{})
}

// GenerateOne submits avatar generation for one character. Style defaults to
// the configured style.
func (m *CharacterManager) GenerateOne(ctx context.Context, characterID string, creds jobs.Credentials, params jobs.Params) (*Job, error) {
	characterID, err := required(characterID, "character", "generate", "character id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opGenerate)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, characterID, characterID, creds, params)
}

// GenerateBatch submits avatar generation for every character of projectID.
func (m *CharacterManager) GenerateBatch(ctx context.Context, projectID string, creds jobs.Credentials) (*Job, error) {
	projectID, err := required(projectID, "character", "batch", "project id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opBatch)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, tracker.BatchKey, projectID, creds, jobs.Params{})
}

// SetAvatar replaces a character's avatar with an existing image reference.
func (m *CharacterManager) SetAvatar(ctx context.Context, characterID, avatarRef string) error {
	avatarRef, err := required(avatarRef, "character", "update", "avatar reference")
	if err != nil {
		return err
	}
	return m.update(ctx, characterID, film.Patch{AvatarRef: &avatarRef})
}

// SceneManager handles the chapter's script and its scenes.
type SceneManager struct {
	*stageManager
}

// Extract submits script generation for chapterID.
func (m *SceneManager) Extract(ctx context.Context, chapterID string, creds jobs.Credentials) (*Job, error) {
	chapterID, err := required(chapterID, "scene", "extract", "chapter id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opExtract)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, chapterID, chapterID, creds, jobs.Params{})
}

// ShotManager handles shots and their keyframes. Keyframe jobs are tracked
// under the keyframe stage, extraction under the shot stage.
type ShotManager struct {
	*stageManager
}

// Extract submits shot extraction for every scene of scriptID.
func (m *ShotManager) Extract(ctx context.Context, scriptID string, creds jobs.Credentials) (*Job, error) {
	scriptID, err := required(scriptID, "shot", "extract", "script id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opExtract)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, scriptID, scriptID, creds, jobs.Params{})
}

// ReextractScene replaces the shots of one scene.
func (m *ShotManager) ReextractScene(ctx context.Context, sceneID string, creds jobs.Credentials) (*Job, error) {
	sceneID, err := required(sceneID, "shot", "reextract", "scene id")
	if err != nil {
		return nil, err
	}
	if _, ok := m.rt.store.Snapshot().SceneByID(sceneID); !ok {
		return nil, services.Wrap(services.ErrNotFound, "shot", "reextract", fmt.Sprintf("scene %s is not loaded", sceneID), nil)
	}
	return m.submit(ctx, jobs.KindExtractSceneShots, sceneID, sceneID, creds, jobs.Params{})
}

// GenerateOne submits keyframe generation for one shot. A non-empty prompt
// replaces the shot description.
func (m *ShotManager) GenerateOne(ctx context.Context, shotID string, creds jobs.Credentials, params jobs.Params) (*Job, error) {
	shotID, err := required(shotID, "keyframe", "generate", "shot id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opGenerate)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, shotID, shotID, creds, params)
}

// GenerateBatch submits keyframe generation for every shot of scriptID.
func (m *ShotManager) GenerateBatch(ctx context.Context, scriptID string, creds jobs.Credentials) (*Job, error) {
	scriptID, err := required(scriptID, "keyframe", "batch", "script id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opBatch)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, tracker.BatchKey, scriptID, creds, jobs.Params{})
}

// TransitionManager handles transitions and their videos.
type TransitionManager struct {
	*stageManager
}

// Extract creates transitions between consecutive shots of scriptID.
func (m *TransitionManager) Extract(ctx context.Context, scriptID string, creds jobs.Credentials) (*Job, error) {
	scriptID, err := required(scriptID, "transition", "extract", "script id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opExtract)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, scriptID, scriptID, creds, jobs.Params{})
}

// GenerateOne submits video generation for one transition. Both bounding
// shots must carry keyframes. An empty prompt falls back to the stored one.
func (m *TransitionManager) GenerateOne(ctx context.Context, transitionID string, creds jobs.Credentials, params jobs.Params) (*Job, error) {
	transitionID, err := required(transitionID, "transition", "generate", "transition id")
	if err != nil {
		return nil, err
	}
	snap := m.rt.store.Snapshot()
	tr, ok := snap.TransitionByID(transitionID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "transition", "generate", fmt.Sprintf("transition %s is not loaded", transitionID), nil)
	}
	if !tr.Eligible(snap) {
		return nil, services.Wrap(services.ErrValidation, "transition", "generate",
			fmt.Sprintf("shots %s and %s both need keyframes", tr.FromShotID, tr.ToShotID), nil)
	}
	if params.Prompt == "" {
		params.Prompt = tr.VideoPrompt
	}
	kind, err := m.kind(opGenerate)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, transitionID, transitionID, creds, params)
}

// SetPrompt stores the video prompt used by later GenerateOne calls that
// pass no prompt of their own.
func (m *TransitionManager) SetPrompt(ctx context.Context, transitionID, prompt string) error {
	prompt, err := required(prompt, "transition", "update", "prompt")
	if err != nil {
		return err
	}
	return m.update(ctx, transitionID, film.Patch{VideoPrompt: &prompt})
}

// GenerateBatch submits video generation for every transition of scriptID.
func (m *TransitionManager) GenerateBatch(ctx context.Context, scriptID string, creds jobs.Credentials) (*Job, error) {
	scriptID, err := required(scriptID, "transition", "batch", "script id")
	if err != nil {
		return nil, err
	}
	kind, err := m.kind(opBatch)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, kind, tracker.BatchKey, scriptID, creds, jobs.Params{})
}

func required(value, stage, operation, field string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Wrap(services.ErrValidation, stage, operation, field+" is required", nil)
	}
	return value, nil
}
