package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsmith/internal/backend"
	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/services"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := backend.New(srv.URL+"/api/v1", backend.WithToken("secret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestSubmitJobRoutesByKind(t *testing.T) {
	tests := []struct {
		kind   jobs.Kind
		target string
		path   string
	}{
		{jobs.KindExtractCharacters, "ch-1", "/api/v1/chapters/ch-1/extract-characters"},
		{jobs.KindGenerateAvatar, "char-7", "/api/v1/characters/char-7/generate"},
		{jobs.KindBatchAvatars, "proj-1", "/api/v1/projects/proj-1/characters/batch-generate"},
		{jobs.KindExtractScenes, "ch-1", "/api/v1/chapters/ch-1/generate-script"},
		{jobs.KindExtractShots, "sc-1", "/api/v1/scripts/sc-1/extract-shots"},
		{jobs.KindExtractSceneShots, "scene-2", "/api/v1/scenes/scene-2/extract-shots"},
		{jobs.KindGenerateKeyframe, "shot-3", "/api/v1/shots/shot-3/generate-keyframe"},
		{jobs.KindBatchKeyframes, "sc-1", "/api/v1/scripts/sc-1/generate-keyframes"},
		{jobs.KindCreateTransitions, "sc-1", "/api/v1/scripts/sc-1/create-transitions"},
		{jobs.KindGenerateTransitionVideo, "tr-4", "/api/v1/transitions/tr-4/generate-video"},
		{jobs.KindBatchTransitionVideos, "sc-1", "/api/v1/scripts/sc-1/generate-transition-videos"},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			var gotPath, gotAuth string
			var body map[string]string
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-1"})
			})
			id, err := client.SubmitJob(context.Background(), jobs.Request{
				Kind:        tc.kind,
				Target:      tc.target,
				Credentials: jobs.Credentials{APIKeyID: "key-1", Model: "m-1"},
				Params:      jobs.Params{Style: "cinematic"},
			})
			if err != nil {
				t.Fatalf("SubmitJob: %v", err)
			}
			if id != "task-1" || gotPath != tc.path || gotAuth != "Bearer secret" {
				t.Fatalf("id=%q path=%q auth=%q", id, gotPath, gotAuth)
			}
			if body["api_key_id"] != "key-1" || body["model"] != "m-1" || body["style"] != "cinematic" {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestSubmitJobErrors(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	})
	_, err := client.SubmitJob(context.Background(), jobs.Request{Kind: jobs.KindGenerateAvatar, Target: "char-7"})
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Detail != "invalid api key" {
		t.Fatalf("expected API error, got %v", err)
	}

	if _, err := client.SubmitJob(context.Background(), jobs.Request{Kind: jobs.KindGenerateAvatar}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty target, got %v", err)
	}
}

func TestGetJobStatusMapsCeleryStates(t *testing.T) {
	tests := []struct {
		payload string
		state   jobs.State
		check   func(t *testing.T, st jobs.Status)
	}{
		{`{"status":"PENDING"}`, jobs.StatePending, nil},
		{`{"status":"STARTED"}`, jobs.StatePending, nil},
		{`{"status":"RETRY"}`, jobs.StatePending, nil},
		{`{"status":"PROGRESS","progress":45,"message":"rendering"}`, jobs.StatePending, func(t *testing.T, st jobs.Status) {
			if st.Progress == nil || st.Progress.Percent != 45 || st.Progress.Message != "rendering" {
				t.Fatalf("unexpected progress %+v", st.Progress)
			}
		}},
		{`{"status":"SUCCESS","result":{"success":3,"failed":0}}`, jobs.StateSucceeded, func(t *testing.T, st jobs.Status) {
			batch, err := jobs.DecodeBatch(st.Result)
			if err != nil || batch.SuccessCount != 3 {
				t.Fatalf("unexpected result %+v (%v)", batch, err)
			}
		}},
		{`{"status":"FAILURE","error":"model overloaded"}`, jobs.StateFailed, func(t *testing.T, st jobs.Status) {
			if st.Error != "model overloaded" {
				t.Fatalf("unexpected error %q", st.Error)
			}
		}},
		{`{"status":"REVOKED"}`, jobs.StateFailed, func(t *testing.T, st jobs.Status) {
			if st.Error != "revoked" {
				t.Fatalf("unexpected error %q", st.Error)
			}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.payload, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/tasks/task-9" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tc.payload))
			})
			st, err := client.GetJobStatus(context.Background(), "task-9")
			if err != nil {
				t.Fatalf("GetJobStatus: %v", err)
			}
			if st.State != tc.state {
				t.Fatalf("expected %s, got %s", tc.state, st.State)
			}
			if tc.check != nil {
				tc.check(t, st)
			}
		})
	}
}

const scriptPayload = `{
  "id": "sc-1", "chapter_id": "ch-1", "status": "completed",
  "scenes": [
    {"id": "scene-2", "order_index": 1, "scene": "rooftop", "shots": [
      {"id": "shot-3", "order_index": 0, "shot": "wide", "keyframe_url": "k3.png"}
    ]},
    {"id": "scene-1", "order_index": 0, "scene": "street", "shots": [
      {"id": "shot-2", "order_index": 1, "shot": "close"},
      {"id": "shot-1", "order_index": 0, "shot": "wide"}
    ]}
  ]
}`

func TestFetchEntities(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/chapters/ch-1/script", "/api/v1/scripts/sc-1":
			_, _ = w.Write([]byte(scriptPayload))
		case "/api/v1/projects/proj-1/characters":
			_, _ = w.Write([]byte(`{"characters":[{"id":"char-1","name":"Mara","avatar_url":"a.png"}]}`))
		case "/api/v1/scripts/sc-1/transitions":
			_, _ = w.Write([]byte(`{"transitions":[{"id":"tr-1","from_shot_id":"shot-1","to_shot_id":"shot-2","order_index":0,"status":"generating"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
		}
	})
	ctx := context.Background()

	scenes, err := client.FetchEntities(ctx, film.StageScene, "ch-1")
	if err != nil {
		t.Fatalf("scenes: %v", err)
	}
	if scenes.Script == nil || len(scenes.Script.Scenes) != 2 || scenes.Script.Scenes[0].ScriptID != "sc-1" {
		t.Fatalf("unexpected script %+v", scenes.Script)
	}

	shots, err := client.FetchEntities(ctx, film.StageShot, "sc-1")
	if err != nil {
		t.Fatalf("shots: %v", err)
	}
	if len(shots.Shots) != 3 || shots.Shots[0].SceneID != "scene-2" {
		t.Fatalf("unexpected shots %+v", shots.Shots)
	}
	snap := film.NewSnapshot(film.Chapter{ID: "ch-1"}, scenes.Script, nil, shots.Shots, nil)
	if got := snap.Shots(); got[0].ID != "shot-1" || got[2].ID != "shot-3" {
		t.Fatalf("shots should order by scene then shot, got %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}

	chars, err := client.FetchEntities(ctx, film.StageCharacter, "proj-1")
	if err != nil || len(chars.Characters) != 1 || !chars.Characters[0].HasAvatar() {
		t.Fatalf("unexpected characters %+v (%v)", chars.Characters, err)
	}

	transitions, err := client.FetchEntities(ctx, film.StageTransition, "sc-1")
	if err != nil || len(transitions.Transitions) != 1 {
		t.Fatalf("unexpected transitions %+v (%v)", transitions.Transitions, err)
	}
	if transitions.Transitions[0].Status != film.TransitionPending {
		t.Fatalf("unknown status should fold to pending, got %q", transitions.Transitions[0].Status)
	}

	if _, err := client.FetchEntities(ctx, film.StageScene, "ch-missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteEntity(t *testing.T) {
	deleted := map[string]bool{}
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if deleted[r.URL.Path] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		deleted[r.URL.Path] = true
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	if err := client.DeleteEntity(ctx, film.StageTransition, "tr-1"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if !deleted["/api/v1/transitions/tr-1"] {
		t.Fatalf("unexpected paths %v", deleted)
	}
	if err := client.DeleteEntity(ctx, film.StageTransition, "tr-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
	if err := client.DeleteEntity(ctx, film.StageAssembly, "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateEntity(t *testing.T) {
	bodies := map[string]map[string]any{}
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if r.URL.Path == "/api/v1/characters/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies[r.URL.Path] = body
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()
	avatar, prompt := "https://cdn.test/a.png", "slow push in"

	if err := client.UpdateEntity(ctx, film.StageCharacter, "char-1", film.Patch{AvatarRef: &avatar, VideoPrompt: &prompt}); err != nil {
		t.Fatalf("UpdateEntity character: %v", err)
	}
	if err := client.UpdateEntity(ctx, film.StageTransition, "tr-1", film.Patch{VideoPrompt: &prompt}); err != nil {
		t.Fatalf("UpdateEntity transition: %v", err)
	}
	if got := bodies["/api/v1/characters/char-1"]; len(got) != 1 || got["avatar_url"] != avatar {
		t.Fatalf("unexpected character body %v", got)
	}
	if got := bodies["/api/v1/transitions/tr-1"]; len(got) != 1 || got["video_prompt"] != prompt {
		t.Fatalf("unexpected transition body %v", got)
	}

	tests := []struct {
		name  string
		stage film.Stage
		id    string
		patch film.Patch
		want  error
	}{
		{"shots have no update route", film.StageShot, "shot-1", film.Patch{VideoPrompt: &prompt}, services.ErrValidation},
		{"patch without a character field", film.StageCharacter, "char-1", film.Patch{VideoPrompt: &prompt}, services.ErrValidation},
		{"missing entity", film.StageCharacter, "missing", film.Patch{AvatarRef: &avatar}, services.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.UpdateEntity(ctx, tt.stage, tt.id, tt.patch); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(bodies) != 2 {
		t.Fatalf("rejected patches must not reach the backend, got %v", bodies)
	}
}

func TestGetChapter(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ch-1","project_id":"proj-1","chapter_number":3}`))
	})
	chapter, err := client.GetChapter(context.Background(), "ch-1")
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if chapter.ProjectID != "proj-1" || chapter.Ordinal != 3 {
		t.Fatalf("unexpected chapter %+v", chapter)
	}
}
