package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/jobs"
	"reelsmith/internal/workflow"
)

// jobFlags are shared by every command that submits a job.
type jobFlags struct {
	noWait     bool
	apiKeyID   string
	model      string
	prompt     string
	style      string
	videoModel string
}

func (f *jobFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noWait, "no-wait", false, "Return after submission instead of following the job")
	cmd.Flags().StringVar(&f.apiKeyID, "api-key-id", "", "API key id passed to the backend (defaults to backend.api_key_id)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model override for this job")
}

func (f *jobFlags) bindPrompt(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Custom prompt")
}

func (f *jobFlags) bindStyle(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.style, "style", "", "Visual style (defaults to generation.style)")
}

func (f *jobFlags) bindVideoModel(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.videoModel, "video-model", "", "Video model (defaults to generation.video_model)")
}

func (f *jobFlags) credentials() jobs.Credentials {
	return jobs.Credentials{APIKeyID: strings.TrimSpace(f.apiKeyID), Model: strings.TrimSpace(f.model)}
}

func (f *jobFlags) params() jobs.Params {
	return jobs.Params{
		Prompt:     strings.TrimSpace(f.prompt),
		Style:      strings.TrimSpace(f.style),
		VideoModel: strings.TrimSpace(f.videoModel),
	}
}

const progressTick = time.Second

// followJob reports the submission and, unless noWait, waits for the outcome.
func followJob(ctx context.Context, out io.Writer, job *workflow.Job, err error, noWait bool) error {
	if errors.Is(err, workflow.ErrInFlight) {
		fmt.Fprintln(out, "A job for this entity is already running; nothing submitted")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Submitted %s for %s (job %s)\n", job.Kind, job.Target, job.ID)
	if noWait {
		job.Detach()
		fmt.Fprintln(out, "Not waiting; check progress with `reelsmith status`")
		return nil
	}

	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()
	var last jobs.Progress
	for {
		select {
		case <-job.Done():
			return reportOutcome(out, job, job.Outcome())
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p := job.Progress(); p != last {
				last = p
				fmt.Fprintln(out, formatProgress(p))
			}
		}
	}
}

func formatProgress(p jobs.Progress) string {
	switch {
	case p.Percent >= 0 && p.Message != "":
		return fmt.Sprintf("  %3.0f%% %s", p.Percent, p.Message)
	case p.Percent >= 0:
		return fmt.Sprintf("  %3.0f%%", p.Percent)
	default:
		return "  " + p.Message
	}
}

func reportOutcome(out io.Writer, job *workflow.Job, outcome workflow.Outcome) error {
	elapsed := outcome.FinishedAt.Sub(job.SubmittedAt).Round(time.Second)
	switch {
	case outcome.Cancelled:
		fmt.Fprintf(out, "%s cancelled\n", job.Kind)
		return nil
	case outcome.Err != nil:
		return fmt.Errorf("%s failed after %s: %w", job.Kind, elapsed, outcome.Err)
	}
	if b := outcome.Batch; b != nil {
		fmt.Fprintf(out, "%s finished in %s: %d succeeded, %d failed\n", job.Kind, elapsed, b.SuccessCount, b.FailedCount)
		if b.Partial() && b.Message != "" {
			fmt.Fprintf(out, "  %s\n", b.Message)
		}
	} else {
		fmt.Fprintf(out, "%s finished in %s\n", job.Kind, elapsed)
	}
	if outcome.ReloadErr != nil {
		fmt.Fprintf(out, "Warning: could not refresh entities: %v\n", outcome.ReloadErr)
	}
	return nil
}
