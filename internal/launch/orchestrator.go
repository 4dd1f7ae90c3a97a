package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"scummsync/internal/changedetect"
	"scummsync/internal/config"
	"scummsync/internal/detector"
	"scummsync/internal/fileutil"
	"scummsync/internal/history"
	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/logging"
	"scummsync/internal/marker"
	"scummsync/internal/reconcile"
	"scummsync/internal/services"
)

// History records finished sessions.
type History interface {
	Record(ctx context.Context, session history.Session) error
	LastFingerprint(ctx context.Context) (string, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDetector replaces the engine-backed detector.
func WithDetector(d Detector) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.detector = d
		}
	}
}

// WithEngine replaces the process engine runner.
func WithEngine(e Engine) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithHistory records sessions in h.
func WithHistory(h History) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.history = h
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.baseLogger = logger
		}
	}
}

// Orchestrator runs launches and standalone syncs for one configuration.
type Orchestrator struct {
	root         library.Root
	storePath    string
	backup       bool
	baseArgs     []string
	engineBinary string
	lockPath     string

	markers    *marker.Store
	detector   Detector
	engine     Engine
	reconciler *reconcile.Reconciler
	history    History
	baseLogger *slog.Logger
	logger     *slog.Logger
}

// New builds an Orchestrator from cfg. Collaborators not supplied through
// options are created from the configuration.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("launch requires a configuration")
	}
	root := library.New(cfg.Paths.LibraryDir, cfg.Markers.Extension)
	o := &Orchestrator{
		root:         root,
		storePath:    cfg.Paths.ConfigFile,
		backup:       cfg.Store.Backup,
		baseArgs:     cfg.EngineBaseArgs(),
		engineBinary: cfg.EngineBinary(),
		lockPath:     cfg.LockPath(),
		markers:      marker.NewStore(root),
		baseLogger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.baseLogger, "launch")
	o.reconciler = reconcile.New(root, reconcile.WithLogger(o.baseLogger))

	if o.detector == nil {
		det, err := detector.New(o.engineBinary, o.baseArgs, o.storePath, root, cfg.DetectTimeout(),
			detector.WithLogger(o.baseLogger))
		if err != nil {
			return nil, err
		}
		o.detector = det
	}
	if o.engine == nil {
		o.engine = NewProcessEngine(o.engineBinary)
	}
	return o, nil
}

// Result summarizes a launch.
type Result struct {
	SessionID  string
	Resolution Resolution
	Args       []string
	EngineExit int
	Sync       SyncResult
}

// SyncOptions controls a reconciliation run.
type SyncOptions struct {
	// Before is the fingerprint the store had when it was last known to be
	// consistent. An empty value always counts as changed.
	Before changedetect.Digest
	Force  bool
	DryRun bool
}

// SyncResult summarizes a reconciliation run.
type SyncResult struct {
	Skipped    bool
	SkipReason string
	DryRun     bool
	Before     changedetect.Digest
	After      changedetect.Digest
	Report     reconcile.Report
	BackupPath string
}

// Launch resolves base, runs the engine in the foreground and reconciles
// afterwards. An empty base opens the engine's own UI. The only error that
// prevents the engine from running is a detection failure (or the lock being
// held); reconciliation problems are logged, not returned.
func (o *Orchestrator) Launch(ctx context.Context, base string) (Result, error) {
	unlock, err := o.acquire()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	started := time.Now()
	result := Result{SessionID: history.NewSessionID()}
	ctx = services.WithSessionID(ctx, result.SessionID)
	logger := logging.WithContext(ctx, o.logger)

	store, before := o.loadBefore(ctx)
	res, err := o.Resolve(ctx, store, base)
	result.Resolution = res
	if err != nil {
		logging.ErrorWithContext(logger, "launch aborted", "detection_failed",
			logging.String("path", res.ContentPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the game files, then rerun the engine's --detect command"),
		)
		o.record(ctx, history.KindLaunch, started, base, result, err)
		return result, err
	}

	ctx = services.WithGameID(ctx, res.GameID)
	logger = logging.WithContext(ctx, o.logger)
	result.Args = append(append([]string(nil), o.baseArgs...), res.Target...)
	logger.Info("starting engine",
		logging.String("resolution", string(res.State)),
		logging.Strings("args", result.Args),
	)

	engineStart := time.Now()
	exit, runErr := o.engine.Run(services.WithStage(ctx, "engine"), result.Args)
	result.EngineExit = exit
	if runErr != nil {
		runErr = services.Wrap(services.ErrExternalTool, "launch", "engine", "Engine could not be run", runErr)
		logging.WarnWithContext(logger, "engine run failed; reconciling anyway", "engine_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "check engine.binary in the scummsync config"),
			logging.String(logging.FieldImpact, "no game session took place"),
		)
	} else if exit != 0 {
		logging.WarnWithContext(logger, "engine exited abnormally; reconciling anyway", "engine_exit_nonzero",
			logging.Int("exit_code", exit),
			logging.String(logging.FieldErrorHint, "run the engine with --debuglevel to investigate"),
			logging.String(logging.FieldImpact, "the configuration store may be partially written"),
		)
	} else {
		logger.Info("engine exited", logging.Duration("played", time.Since(engineStart)))
	}

	syncRes, syncErr := o.sync(services.WithStage(ctx, "sync"), SyncOptions{Before: before})
	result.Sync = syncRes
	if syncErr != nil {
		logging.WarnWithContext(logger, "post-launch reconciliation failed", "sync_failed",
			logging.Error(syncErr),
			logging.String(logging.FieldErrorHint, "run scummsync sync --debug to retry"),
			logging.String(logging.FieldImpact, "markers and the configuration store may disagree"),
		)
	}

	o.record(ctx, history.KindLaunch, started, base, result, errors.Join(runErr, syncErr))
	return result, runErr
}

// Sync runs a standalone reconciliation. Unless opts.Force is set or
// opts.Before is given, the store is compared with the fingerprint recorded by
// the previous session and left alone when it has not changed.
func (o *Orchestrator) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	unlock, err := o.acquire()
	if err != nil {
		return SyncResult{}, err
	}
	defer unlock()

	started := time.Now()
	sessionID := history.NewSessionID()
	ctx = services.WithStage(services.WithSessionID(ctx, sessionID), "sync")

	if !opts.Force && opts.Before == "" && o.history != nil {
		fp, err := o.history.LastFingerprint(ctx)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, o.logger), "history lookup failed; reconciling", "history_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the change check is skipped"),
			)
		}
		opts.Before = changedetect.Digest(fp)
	}

	res, err := o.sync(ctx, opts)
	o.record(ctx, history.KindSync, started, "", Result{SessionID: sessionID, Sync: res}, err)
	return res, err
}

func (o *Orchestrator) loadBefore(ctx context.Context) (*inistore.Store, changedetect.Digest) {
	store, err := inistore.Load(o.storePath)
	if err == nil {
		return store, changedetect.Fingerprint(store)
	}
	logger := logging.WithContext(ctx, o.logger)
	if errors.Is(err, inistore.ErrNotFound) {
		logger.Info("configuration store not present yet", logging.String("path", o.storePath))
		return nil, ""
	}
	logging.WarnWithContext(logger, "configuration store unreadable before launch", "store_read_failed",
		logging.String("path", o.storePath),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions of the engine's ini file"),
		logging.String(logging.FieldImpact, "markers are validated without the store"),
	)
	return nil, ""
}

func (o *Orchestrator) sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	logger := logging.WithContext(ctx, o.logger)
	res := SyncResult{Before: opts.Before, DryRun: opts.DryRun}

	store, err := inistore.Load(o.storePath)
	if err != nil {
		if errors.Is(err, inistore.ErrNotFound) {
			res.Skipped = true
			res.SkipReason = "configuration store missing"
			logging.WarnWithContext(logger, "configuration store missing; nothing to reconcile", "store_missing",
				logging.String("path", o.storePath),
				logging.String(logging.FieldErrorHint, "start the engine once so it writes its ini file"),
				logging.String(logging.FieldImpact, "markers were not checked"),
			)
			return res, nil
		}
		return res, err
	}

	res.After = changedetect.Fingerprint(store)
	if !opts.Force && !changedetect.HasChanged(opts.Before, res.After) {
		res.Skipped = true
		res.SkipReason = "configuration store unchanged"
		logger.Debug("reconciliation skipped", logging.String("reason", res.SkipReason))
		return res, nil
	}

	snap, err := o.markers.ListAll()
	if err != nil {
		return res, services.Wrap(services.ErrConfiguration, "sync", "markers",
			"Library directory "+o.root.Dir()+" is not readable; refusing to reconcile", err)
	}

	report := o.reconciler.Reconcile(store, snap)
	res.Report = report
	res.After = changedetect.Fingerprint(store)
	if opts.DryRun {
		logger.Info("dry run; nothing written",
			logging.Int("removed", len(report.Removed)),
			logging.Int("renamed", len(report.Renamed)),
			logging.Int("marker_ops", len(report.MarkerOps)),
		)
		return res, nil
	}

	if report.StoreChanged() {
		if o.backup {
			path, err := fileutil.Backup(o.storePath)
			if err != nil {
				return res, services.Wrap(services.ErrConfiguration, "sync", "backup", "Could not back up "+o.storePath, err)
			}
			res.BackupPath = path
		}
		if err := store.Save(o.storePath); err != nil {
			return res, err
		}
	}
	if err := o.markers.Apply(report.MarkerOps); err != nil {
		return res, services.Wrap(services.ErrConfiguration, "sync", "markers", "Some marker files could not be updated", err)
	}

	logger.Info("reconciliation complete",
		logging.Int("sections", report.Sections),
		logging.Int("removed", len(report.Removed)),
		logging.Int("renamed", len(report.Renamed)),
		logging.Int("marker_ops", len(report.MarkerOps)),
		logging.Int("diagnostics", len(report.Diagnostics)),
		logging.Bool("store_changed", report.StoreChanged()),
	)
	return res, nil
}

func (o *Orchestrator) acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(o.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(o.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, o.lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			o.logger.Warn("failed to release lock", logging.String("lock", o.lockPath), logging.Error(err))
		}
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, kind string, started time.Time, base string, result Result, err error) {
	if o.history == nil {
		return
	}
	sync := result.Sync
	session := history.Session{
		ID:              result.SessionID,
		Kind:            kind,
		BaseName:        o.root.BaseName(base),
		GameID:          result.Resolution.GameID,
		Resolution:      string(result.Resolution.State),
		EngineExit:      result.EngineExit,
		Reconciled:      !sync.Skipped && !sync.DryRun && sync.After != "",
		SectionsRemoved: len(sync.Report.Removed),
		SectionsRenamed: len(sync.Report.Renamed),
		MarkerOps:       len(sync.Report.MarkerOps),
		Diagnostics:     len(sync.Report.Diagnostics),
		StartedAt:       started,
		FinishedAt:      time.Now(),
	}
	if err == nil && !sync.DryRun {
		session.Fingerprint = string(sync.After)
	}
	if err != nil {
		session.ErrorKind = services.Kind(err)
		session.ErrorMessage = err.Error()
	}
	if recErr := o.history.Record(ctx, session); recErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "session not recorded", "history_record_failed",
			logging.Error(recErr),
			logging.String(logging.FieldErrorHint, "check the state directory and history.db"),
			logging.String(logging.FieldImpact, "the next sync cannot skip an unchanged store"),
		)
	}
}
