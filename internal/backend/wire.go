package backend

import (
	"encoding/json"
	"strings"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
)

type submitBody struct {
	APIKeyID   string `json:"api_key_id,omitempty"`
	Model      string `json:"model,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Style      string `json:"style,omitempty"`
	VideoModel string `json:"video_model,omitempty"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type taskResponse struct {
	TaskID   string          `json:"task_id"`
	Status   string          `json:"status"`
	Result   json.RawMessage `json:"result"`
	Error    string          `json:"error"`
	Progress *float64        `json:"progress"`
	Message  string          `json:"message"`
}

func (t taskResponse) status() jobs.Status {
	st := jobs.Status{State: celeryState(t.Status)}
	switch st.State {
	case jobs.StateSucceeded:
		st.Result = jobs.Result{Raw: t.Result}
	case jobs.StateFailed:
		st.Error = strings.TrimSpace(t.Error)
		if st.Error == "" {
			st.Error = strings.ToLower(strings.TrimSpace(t.Status))
		}
	default:
		if t.Progress != nil || t.Message != "" {
			p := jobs.Progress{Percent: -1, Message: t.Message}
			if t.Progress != nil {
				p.Percent = *t.Progress
			}
			st.Progress = &p
		}
	}
	return st
}

// celeryState maps task states. Unknown states are treated as pending.
func celeryState(status string) jobs.State {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS":
		return jobs.StateSucceeded
	case "FAILURE", "REVOKED":
		return jobs.StateFailed
	default:
		return jobs.StatePending
	}
}

type scriptResponse struct {
	ID        string          `json:"id"`
	ChapterID string          `json:"chapter_id"`
	Status    string          `json:"status"`
	Scenes    []sceneResponse `json:"scenes"`
}

type sceneResponse struct {
	film.Scene
	Shots []film.Shot `json:"shots"`
}

func (s scriptResponse) script() *film.Script {
	script := &film.Script{ID: s.ID, ChapterID: s.ChapterID, Status: s.Status}
	for _, scene := range s.Scenes {
		sc := scene.Scene
		if sc.ScriptID == "" {
			sc.ScriptID = s.ID
		}
		script.Scenes = append(script.Scenes, sc)
	}
	return script
}

func (s scriptResponse) shots() []film.Shot {
	var out []film.Shot
	for _, scene := range s.Scenes {
		for _, shot := range scene.Shots {
			if shot.SceneID == "" {
				shot.SceneID = scene.ID
			}
			out = append(out, shot)
		}
	}
	return out
}

type charactersResponse struct {
	Characters []film.Character `json:"characters"`
}

type transitionsResponse struct {
	Transitions []film.Transition `json:"transitions"`
}

// normalizeTransitions folds unrecognized backend statuses into pending.
func normalizeTransitions(in []film.Transition) []film.Transition {
	for i := range in {
		status, err := film.ParseTransitionStatus(string(in[i].Status))
		if err != nil {
			status = film.TransitionPending
		}
		in[i].Status = status
	}
	return in
}
