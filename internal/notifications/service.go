package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/config"
)

const userAgent = "reelsmith/0.1"

var titleCaser = cases.Title(language.English)

// Event identifies a notification type.
type Event string

const (
	EventJobCompleted  Event = "job_completed"
	EventJobFailed     Event = "job_failed"
	EventStageAdvanced Event = "stage_advanced"
	EventTest          Event = "test"
)

// Payload carries event fields. Recognised keys per event:
//
//	job_completed   kind, target, chapter, success, failed (counts for batches)
//	job_failed      kind, target, chapter, error
//	stage_advanced  chapter, stage, next
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured. Events disabled in the configuration are dropped. Without a
// topic a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:  cfg.Notifications.JobCompleted,
			EventJobFailed:     cfg.Notifications.JobFailed,
			EventStageAdvanced: cfg.Notifications.StageAdvanced,
			EventTest:          true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	chapter := payloadString(payload, "chapter")
	kind := humanize(payloadString(payload, "kind"))
	target := payloadString(payload, "target")

	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("%s finished for %s", kind, target)
		tags := []string{"reelsmith", "job", "completed"}
		if success, ok := payloadInt(payload, "success"); ok {
			failed, _ := payloadInt(payload, "failed")
			body = fmt.Sprintf("%s finished: %d succeeded, %d failed", kind, success, failed)
			if failed > 0 {
				tags = append(tags, "partial")
			}
		}
		return message{title: titleFor("Job Complete", chapter), body: body, tags: tags}, true
	case EventJobFailed:
		reason := payloadString(payload, "error")
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    titleFor("Job Failed", chapter),
			body:     fmt.Sprintf("%s failed for %s: %s", kind, target, reason),
			tags:     []string{"reelsmith", "job", "failed"},
			priority: "high",
		}, true
	case EventStageAdvanced:
		body := fmt.Sprintf("Chapter reached %s stage", payloadString(payload, "stage"))
		if next := payloadString(payload, "next"); next != "" {
			body += "\nNext: " + next
		}
		return message{title: titleFor("Stage Advanced", chapter), body: body, tags: []string{"reelsmith", "stage"}}, true
	case EventTest:
		return message{title: "reelsmith - Test", body: "Notification system test", tags: []string{"reelsmith", "test"}, priority: "low"}, true
	default:
		return message{}, false
	}
}

func titleFor(label, chapter string) string {
	if chapter == "" {
		return "reelsmith - " + label
	}
	return fmt.Sprintf("reelsmith - %s (%s)", label, chapter)
}

func humanize(kind string) string {
	if kind == "" {
		return "Job"
	}
	return titleCaser.String(strings.ReplaceAll(kind, "_", " "))
}

func payloadString(p Payload, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case error:
		return strings.TrimSpace(val.Error())
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func payloadInt(p Payload, key string) (int, bool) {
	switch val := p[key].(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
