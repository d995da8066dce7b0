package film

import (
	"fmt"
	"strings"
)

// Chapter is created externally and read-only to the orchestration core.
type Chapter struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id,omitempty"`
	Ordinal   int    `json:"chapter_number"`
	Status    string `json:"status,omitempty"`
}

// Script is the single script of a chapter. It owns the ordered scenes.
type Script struct {
	ID        string  `json:"id"`
	ChapterID string  `json:"chapter_id"`
	Status    string  `json:"status,omitempty"`
	Scenes    []Scene `json:"scenes"`
}

// Scene is one scene of a script.
type Scene struct {
	ID          string   `json:"id"`
	ScriptID    string   `json:"script_id,omitempty"`
	OrderIndex  int      `json:"order_index"`
	Description string   `json:"scene"`
	Characters  []string `json:"characters,omitempty"`
}

// Shot belongs to a scene by back-reference. KeyframeRef is empty until a
// keyframe job succeeds.
type Shot struct {
	ID          string   `json:"id"`
	SceneID     string   `json:"scene_id"`
	OrderIndex  int      `json:"order_index"`
	Description string   `json:"shot"`
	Dialogue    string   `json:"dialogue,omitempty"`
	Characters  []string `json:"characters,omitempty"`
	KeyframeRef string   `json:"keyframe_url,omitempty"`
}

// HasKeyframe reports whether the keyframe reference is set.
func (s Shot) HasKeyframe() bool { return strings.TrimSpace(s.KeyframeRef) != "" }

// Character is extracted from chapter text. AvatarRef is empty until an
// avatar job succeeds.
type Character struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role_description,omitempty"`
	VisualTraits string `json:"visual_traits,omitempty"`
	AvatarRef    string `json:"avatar_url,omitempty"`
}

// HasAvatar reports whether the avatar reference is set.
func (c Character) HasAvatar() bool { return strings.TrimSpace(c.AvatarRef) != "" }

// TransitionStatus tracks the video generation lifecycle of a transition.
type TransitionStatus string

const (
	TransitionPending    TransitionStatus = "pending"
	TransitionProcessing TransitionStatus = "processing"
	TransitionCompleted  TransitionStatus = "completed"
	TransitionFailed     TransitionStatus = "failed"
)

// ParseTransitionStatus converts a backend status string. Empty input maps to pending.
func ParseTransitionStatus(value string) (TransitionStatus, error) {
	switch TransitionStatus(strings.ToLower(strings.TrimSpace(value))) {
	case "", TransitionPending:
		return TransitionPending, nil
	case TransitionProcessing:
		return TransitionProcessing, nil
	case TransitionCompleted:
		return TransitionCompleted, nil
	case TransitionFailed:
		return TransitionFailed, nil
	default:
		return "", fmt.Errorf("unknown transition status %q", value)
	}
}

// Transition bridges two consecutive shots with a generated video.
type Transition struct {
	ID           string           `json:"id"`
	ScriptID     string           `json:"script_id,omitempty"`
	OrderIndex   int              `json:"order_index"`
	FromShotID   string           `json:"from_shot_id"`
	ToShotID     string           `json:"to_shot_id"`
	FromKeyframe string           `json:"from_keyframe_url,omitempty"`
	ToKeyframe   string           `json:"to_keyframe_url,omitempty"`
	VideoPrompt  string           `json:"video_prompt,omitempty"`
	VideoRef     string           `json:"video_url,omitempty"`
	Status       TransitionStatus `json:"status"`
}

// HasVideo reports whether the video reference is set.
func (t Transition) HasVideo() bool { return strings.TrimSpace(t.VideoRef) != "" }

// Eligible reports whether both bounding shots carry keyframes, making the
// transition ready for video generation. Shots present in the snapshot are
// authoritative; the transition's own keyframe references are used only when
// a bounding shot is not loaded.
func (t Transition) Eligible(snap Snapshot) bool {
	return t.boundHasKeyframe(snap, t.FromShotID, t.FromKeyframe) &&
		t.boundHasKeyframe(snap, t.ToShotID, t.ToKeyframe)
}

func (t Transition) boundHasKeyframe(snap Snapshot, shotID, fallback string) bool {
	if shot, ok := snap.ShotByID(shotID); ok {
		return shot.HasKeyframe()
	}
	return strings.TrimSpace(fallback) != ""
}

// Patch lists editable entity fields. Nil fields are left unchanged.
type Patch struct {
	// AvatarRef replaces a character's avatar image.
	AvatarRef *string
	// VideoPrompt replaces a transition's video prompt.
	VideoPrompt *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return p.AvatarRef == nil && p.VideoPrompt == nil }
