package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/entitystore"
	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const userAgent = "reelsmith/1.0"

// Client calls the generation service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ jobs.Backend       = (*Client)(nil)
	_ entitystore.Source = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("backend base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig creates a client from the backend section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "init", "config is required", nil)
	}
	return New(cfg.Backend.BaseURL,
		WithToken(cfg.Backend.APIToken),
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithLogger(logging.NewComponentLogger(logger, "backend")),
	)
}

// SubmitJob posts the request to the route of its kind and returns the task id.
func (c *Client) SubmitJob(ctx context.Context, req jobs.Request) (string, error) {
	route, ok := submitRoutes[req.Kind]
	if !ok {
		return "", fmt.Errorf("no route for job kind %s: %w", req.Kind, services.ErrValidation)
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return "", fmt.Errorf("%s requires a target: %w", req.Kind, services.ErrValidation)
	}
	body := submitBody{
		APIKeyID:   req.Credentials.APIKeyID,
		Model:      req.Credentials.Model,
		Prompt:     req.Params.Prompt,
		Style:      req.Params.Style,
		VideoModel: req.Params.VideoModel,
	}
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(route, escape(target)), body, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.TaskID) == "" {
		return "", errors.New("submit response carried no task_id")
	}
	return resp.TaskID, nil
}

// GetJobStatus reads the task and maps its state.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(taskPath, escape(jobID)), nil, &resp); err != nil {
		return jobs.Status{}, err
	}
	return resp.status(), nil
}

// GetChapter reads one chapter.
func (c *Client) GetChapter(ctx context.Context, chapterID string) (film.Chapter, error) {
	var chapter film.Chapter
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(chapterPath, escape(chapterID)), nil, &chapter); err != nil {
		return film.Chapter{}, err
	}
	if chapter.ID == "" {
		chapter.ID = chapterID
	}
	return chapter, nil
}

// FetchEntities reads one entity slice. Scenes hang off the chapter,
// characters off the project, shots and transitions off the script.
func (c *Client) FetchEntities(ctx context.Context, stage film.Stage, parentID string) (film.Collection, error) {
	coll := film.Empty(stage)
	id := escape(parentID)
	switch stage {
	case film.StageScene:
		var resp scriptResponse
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf(scriptPath, id), nil, &resp); err != nil {
			return film.Collection{}, err
		}
		coll.Script = resp.script()
	case film.StageShot, film.StageKeyframe:
		var resp scriptResponse
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf(scriptShotsPath, id), nil, &resp); err != nil {
			return film.Collection{}, err
		}
		coll.Shots = resp.shots()
	case film.StageCharacter:
		var resp charactersResponse
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf(charactersPath, id), nil, &resp); err != nil {
			return film.Collection{}, err
		}
		coll.Characters = resp.Characters
	case film.StageTransition:
		var resp transitionsResponse
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf(transitionsPath, id), nil, &resp); err != nil {
			return film.Collection{}, err
		}
		coll.Transitions = normalizeTransitions(resp.Transitions)
	default:
		return film.Collection{}, fmt.Errorf("stage %s has no entity route: %w", stage, services.ErrValidation)
	}
	return coll, nil
}

var entityPaths = map[film.Stage]string{
	film.StageCharacter:  "/characters/%s",
	film.StageScene:      "/scenes/%s",
	film.StageShot:       "/shots/%s",
	film.StageKeyframe:   "/shots/%s",
	film.StageTransition: "/transitions/%s",
}

// DeleteEntity removes one entity.
func (c *Client) DeleteEntity(ctx context.Context, stage film.Stage, id string) error {
	route, ok := entityPaths[stage]
	if !ok {
		return fmt.Errorf("stage %s has no delete route: %w", stage, services.ErrValidation)
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf(route, escape(id)), nil, nil)
}

// updateBody is the PUT payload for character and transition edits.
type updateBody struct {
	AvatarURL   *string `json:"avatar_url,omitempty"`
	VideoPrompt *string `json:"video_prompt,omitempty"`
}

// UpdateEntity edits a character's avatar or a transition's video prompt.
func (c *Client) UpdateEntity(ctx context.Context, stage film.Stage, id string, patch film.Patch) error {
	var body updateBody
	switch stage {
	case film.StageCharacter:
		body.AvatarURL = patch.AvatarRef
	case film.StageTransition:
		body.VideoPrompt = patch.VideoPrompt
	default:
		return fmt.Errorf("stage %s has no update route: %w", stage, services.ErrValidation)
	}
	if body.AvatarURL == nil && body.VideoPrompt == nil {
		return fmt.Errorf("patch sets no %s field: %w", stage, services.ErrValidation)
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf(entityPaths[stage], escape(id)), body, nil)
}

// APIError is a non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Status, e.Detail)
}

// Unwrap marks missing resources as not found.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return services.ErrNotFound
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("%s %s (latency=%v): %w", method, path, latency, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Detail: errorDetail(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorDetail extracts the service's {"detail": ...} message when present.
func errorDetail(raw []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if data, err := json.Marshal(payload.Detail); err == nil {
			return string(data)
		}
	}
	return strings.TrimSpace(string(raw))
}
