package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const (
	// DefaultInterval is the delay between status queries.
	DefaultInterval = 2 * time.Second
	// DefaultMaxTransportRetries bounds consecutive transport errors before escalation.
	DefaultMaxTransportRetries = 3
)

type settings struct {
	interval   time.Duration
	maxRetries int
	progress   func(Progress)
	logger     *slog.Logger
}

// Option customizes a Poller or a single Submit call.
type Option func(*settings)

// WithInterval sets the delay between status queries. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxTransportRetries sets how many consecutive transport errors are
// retried before the job is failed. Negative values are ignored.
func WithMaxTransportRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithProgress registers a callback for intermediate progress reports. No
// report is delivered once Cancel has returned; fn must not call Cancel.
func WithProgress(fn func(Progress)) Option {
	return func(s *settings) { s.progress = fn }
}

// WithLogger sets the logger used for retry and cancellation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Poller follows submitted jobs until they reach a terminal state. It holds no
// per-job state; each Submit runs its own loop.
type Poller struct {
	source   StatusSource
	defaults settings
}

// NewPoller constructs a poller querying source. Options set the defaults for
// every Submit call.
func NewPoller(source StatusSource, opts ...Option) *Poller {
	defaults := settings{
		interval:   DefaultInterval,
		maxRetries: DefaultMaxTransportRetries,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&defaults)
	}
	return &Poller{source: source, defaults: defaults}
}

// Submit starts polling jobID. onSuccess receives the result payload; onFailure
// receives a *JobFailure. Exactly one of them is invoked once, on the polling
// goroutine, unless the returned handle is cancelled or ctx ends first.
func (p *Poller) Submit(ctx context.Context, jobID string, onSuccess func(Result), onFailure func(error), opts ...Option) *Handle {
	cfg := p.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		jobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logger := logging.WithContext(services.WithJobID(ctx, jobID), cfg.logger)
	go h.run(loopCtx, p.source, cfg, logger, onSuccess, onFailure)
	return h
}

// Handle controls one polling loop.
type Handle struct {
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	fired     bool
}

// JobID returns the polled job identifier.
func (h *Handle) JobID() string { return h.jobID }

// Done is closed when the polling loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel stops the loop. Once Cancel returns true no callback fires, even if a
// status query is in flight. It returns false when a callback already fired.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		return false
	}
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
	return true
}

// claim reserves the right to invoke a callback. It fails after cancellation.
func (h *Handle) claim(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.fired || ctx.Err() != nil {
		h.cancelled = true
		return false
	}
	h.fired = true
	return true
}

// deliverProgress calls fn unless the loop was cancelled. The handle stays
// locked while fn runs, so a concurrent Cancel returns only after fn does.
func (h *Handle) deliverProgress(ctx context.Context, fn func(Progress), p Progress) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || ctx.Err() != nil {
		return false
	}
	fn(p)
	return true
}

func (h *Handle) active(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.cancelled && ctx.Err() == nil
}

func (h *Handle) run(ctx context.Context, source StatusSource, cfg settings, logger *slog.Logger, onSuccess func(Result), onFailure func(error)) {
	defer close(h.done)
	defer h.cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			h.discard(logger, "context done")
			return
		case <-timer.C:
		}

		status, err := source.GetJobStatus(ctx, h.jobID)
		if !h.active(ctx) {
			h.discard(logger, "cancelled during status query")
			return
		}
		if err != nil {
			consecutive++
			if consecutive > cfg.maxRetries {
				failure := &JobFailure{
					JobID: h.jobID,
					Err:   &TransportError{JobID: h.jobID, Attempts: consecutive, Err: err},
				}
				if h.claim(ctx) && onFailure != nil {
					onFailure(failure)
				}
				return
			}
			logging.WarnWithContext(logger, "job status query failed; retrying", logging.EventTransportRetry,
				logging.Int("attempt", consecutive),
				logging.Int("max_retries", cfg.maxRetries),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check backend connectivity"),
				logging.String(logging.FieldImpact, "job outcome delayed"),
			)
			timer.Reset(cfg.interval)
			continue
		}
		consecutive = 0

		switch status.State {
		case StateSucceeded:
			if h.claim(ctx) && onSuccess != nil {
				onSuccess(status.Result)
			}
			return
		case StateFailed:
			failure := &JobFailure{JobID: h.jobID, Message: status.Error}
			if h.claim(ctx) && onFailure != nil {
				onFailure(failure)
			}
			return
		default:
			if status.Progress != nil && cfg.progress != nil && !h.deliverProgress(ctx, cfg.progress, *status.Progress) {
				h.discard(logger, "cancelled before progress delivery")
				return
			}
			timer.Reset(cfg.interval)
		}
	}
}

func (h *Handle) discard(logger *slog.Logger, reason string) {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	logger.Debug("job polling stopped",
		logging.String(logging.FieldEventType, logging.EventJobCancelled),
		logging.String("reason", reason),
	)
}

// Wait blocks until the loop exits or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTransport reports whether err originated from transport failures rather
// than a backend-reported job failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
