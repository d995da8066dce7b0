package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"reelsmith/internal/config"
	"reelsmith/internal/entitystore"
	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/journal"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/tracker"
)

// ErrSessionLocked is returned by Open when another process holds the
// chapter lock.
var ErrSessionLocked = errors.New("chapter is open in another reelsmith process")

// Collaborator is the generation backend together with its entity store.
type Collaborator interface {
	jobs.Backend
	entitystore.Source
}

// SessionOption customizes a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger      *slog.Logger
	journal     *journal.Store
	notifier    notifications.Service
	pollerOpts  []jobs.Option
	defaults    *Defaults
	skipLocking bool
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = logger }
}

// WithJournal records every terminal outcome to store.
func WithJournal(store *journal.Store) SessionOption {
	return func(o *sessionOptions) { o.journal = store }
}

// WithNotifier publishes job and stage events.
func WithNotifier(n notifications.Service) SessionOption {
	return func(o *sessionOptions) { o.notifier = n }
}

// WithPollerOptions overrides the polling interval and retry budget derived
// from configuration.
func WithPollerOptions(opts ...jobs.Option) SessionOption {
	return func(o *sessionOptions) { o.pollerOpts = append(o.pollerOpts, opts...) }
}

// WithDefaults overrides the request defaults derived from configuration.
func WithDefaults(d Defaults) SessionOption {
	return func(o *sessionOptions) { o.defaults = &d }
}

// WithoutLock skips the per-chapter file lock.
func WithoutLock() SessionOption {
	return func(o *sessionOptions) { o.skipLocking = true }
}

// Session orchestrates one chapter.
type Session struct {
	Characters  *CharacterManager
	Scenes      *SceneManager
	Shots       *ShotManager
	Transitions *TransitionManager

	cfg      *config.Config
	chapter  film.Chapter
	logger   *slog.Logger
	store    *entitystore.Store
	tracker  *tracker.Tracker
	rt       *runtime
	journal  *journal.Store
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	ctx    context.Context
	cancel context.CancelFunc

	stageMu     sync.Mutex
	stage       stage.Index
	seenVersion uint64
	refreshing  int
	listeners   []func(prev, next stage.Index)
	unsubscribe func()

	closeOnce sync.Once
}

// NewSession wires the store, tracker, poller and managers for chapter.
func NewSession(cfg *config.Config, chapter film.Chapter, collab Collaborator, opts ...SessionOption) *Session {
	options := sessionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	defaults := DefaultsFromConfig(cfg)
	if options.defaults != nil {
		defaults = *options.defaults
	}

	ctx, cancel := context.WithCancel(services.WithChapterID(context.Background(), chapter.ID))
	logger = logger.With(logging.String(logging.FieldChapterID, chapter.ID))

	pollerOpts := []jobs.Option{jobs.WithLogger(logging.NewComponentLogger(logger, "poller"))}
	if cfg != nil {
		pollerOpts = append(pollerOpts,
			jobs.WithInterval(cfg.PollInterval()),
			jobs.WithMaxTransportRetries(cfg.Polling.MaxTransportRetries),
		)
	}
	pollerOpts = append(pollerOpts, options.pollerOpts...)

	s := &Session{
		cfg:      cfg,
		chapter:  chapter,
		logger:   logging.NewComponentLogger(logger, "session"),
		store:    entitystore.New(chapter),
		tracker:  tracker.New(),
		journal:  options.journal,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg != nil && !options.skipLocking {
		s.lockPath = cfg.SessionLockPath(chapter.ID)
		s.lock = flock.New(s.lockPath)
	}

	s.rt = &runtime{
		ctx:        ctx,
		backend:    collab,
		source:     collab,
		store:      s.store,
		tracker:    s.tracker,
		poller:     jobs.NewPoller(collab, pollerOpts...),
		jobs:       newJobSet(),
		logger:     logger,
		defaults:   defaults,
		onFinished: s.jobFinished,
		onRejected: s.jobRejected,
	}
	s.Characters = &CharacterManager{newStageManager(s.rt, film.StageCharacter, s.ProjectID)}
	s.Scenes = &SceneManager{newStageManager(s.rt, film.StageScene, func() string { return chapter.ID })}
	s.Shots = &ShotManager{newStageManager(s.rt, film.StageShot, s.ScriptID)}
	s.Transitions = &TransitionManager{newStageManager(s.rt, film.StageTransition, s.ScriptID)}

	s.stage = stage.Derive(s.store.Snapshot())
	s.unsubscribe = s.store.Subscribe(s.observeSnapshot)
	return s
}

// Open acquires the chapter lock.
func (s *Session) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.lock == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire chapter lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionLocked, s.chapter.ID)
	}
	s.logger.Debug("chapter lock acquired", logging.String("lock_path", s.lockPath))
	return nil
}

// Chapter returns the chapter this session drives.
func (s *Session) Chapter() film.Chapter { return s.chapter }

// ProjectID is the parent of the character slice. Chapters without a
// project fall back to their own id.
func (s *Session) ProjectID() string {
	if id := strings.TrimSpace(s.chapter.ProjectID); id != "" {
		return id
	}
	return s.chapter.ID
}

// ScriptID returns the loaded script id, empty before a script exists.
func (s *Session) ScriptID() string {
	return s.store.Snapshot().ScriptID()
}

// Refresh reloads every slice. The script loads first because shots and
// transitions hang off it. The stage reached by a refresh becomes the new
// baseline without firing listeners or notifications.
func (s *Session) Refresh(ctx context.Context) error {
	s.stageMu.Lock()
	s.refreshing++
	s.stageMu.Unlock()
	defer func() {
		s.stageMu.Lock()
		snap := s.store.Snapshot()
		s.refreshing--
		s.stage = stage.Derive(snap)
		s.seenVersion = max(s.seenVersion, snap.Version)
		s.stageMu.Unlock()
	}()

	if err := s.Scenes.Load(ctx, s.chapter.ID); err != nil {
		return err
	}
	scriptID := s.ScriptID()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Characters.Load(gctx, s.ProjectID()) })
	g.Go(func() error { return s.Shots.Load(gctx, scriptID) })
	g.Go(func() error { return s.Transitions.Load(gctx, scriptID) })
	return g.Wait()
}

// Snapshot returns the current entity view.
func (s *Session) Snapshot() film.Snapshot { return s.store.Snapshot() }

// Stage derives the current pipeline step.
func (s *Session) Stage() stage.Index {
	return stage.Derive(s.store.Snapshot())
}

// Busy reports whether a job for stage and entity id is running.
func (s *Session) Busy(st film.Stage, id string) bool { return s.tracker.Busy(st, id) }

// Batching reports whether a batch job is running for stage.
func (s *Session) Batching(st film.Stage) bool { return s.tracker.Batching(st) }

// InFlight lists the entity ids with running jobs for stage.
func (s *Session) InFlight(st film.Stage) []string { return s.tracker.InFlight(st) }

// ActiveJobs returns the jobs still running.
func (s *Session) ActiveJobs() []*Job { return s.rt.jobs.list() }

// OnStageChange registers fn to run whenever the derived stage changes.
func (s *Session) OnStageChange(fn func(prev, next stage.Index)) {
	if fn == nil {
		return
	}
	s.stageMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.stageMu.Unlock()
}

// Close cancels every running job, waits for their polling loops and
// releases the chapter lock.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		running := s.rt.jobs.list()
		for _, job := range running {
			job.Cancel()
		}
		s.cancel()
		for _, job := range running {
			if done := job.pollDone(); done != nil {
				<-done
			}
		}
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.lock != nil {
			if unlockErr := s.lock.Unlock(); unlockErr != nil {
				err = fmt.Errorf("release chapter lock: %w", unlockErr)
			}
		}
		s.logger.Debug("session closed", logging.Int("cancelled_jobs", len(running)))
	})
	return err
}
