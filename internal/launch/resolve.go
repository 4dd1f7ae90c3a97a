package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/logging"
	"scummsync/internal/marker"
	"scummsync/internal/services"
)

// State is the outcome of pre-launch resolution.
type State string

const (
	StateNoMarker     State = "no_marker"
	StateResolved     State = "resolved"
	StateFailed       State = "failed"
	StateConfirmed    State = "confirmed"
	StateCorrected    State = "corrected"
	StatePathFallback State = "path_fallback"
)

// Resolution describes how the engine will be started.
type Resolution struct {
	State       State
	Name        string
	ContentPath string
	GameID      string
	// Target holds the arguments naming what the engine should start.
	Target []string
}

// Detector is the engine's game detection as consumed by resolution.
type Detector interface {
	Detect(ctx context.Context, contentPath string) (string, error)
	Add(ctx context.Context, contentPath string) (string, error)
}

// Resolve establishes the game id for base. store is the configuration store
// as read before the launch; it is not modified.
func (o *Orchestrator) Resolve(ctx context.Context, store *inistore.Store, base string) (Resolution, error) {
	ctx = services.WithStage(ctx, "resolve")
	name := o.root.BaseName(base)
	if name == "" {
		return Resolution{State: StateNoMarker}, nil
	}
	res := Resolution{Name: name, ContentPath: o.root.ContentDir(name)}
	logger := logging.WithContext(ctx, o.logger)

	m, err := o.markers.Read(name)
	if err != nil {
		logging.WarnWithContext(logger, "marker unreadable; treating as absent", "marker_read_failed",
			logging.String("marker", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions of the marker file"),
			logging.String(logging.FieldImpact, "the game is detected again"),
		)
		m = marker.Marker{Name: name, State: marker.Absent}
	}

	if m.State != marker.Set {
		return o.detect(ctx, res)
	}
	return o.validate(ctx, store, res, m.ID)
}

func (o *Orchestrator) detect(ctx context.Context, res Resolution) (Resolution, error) {
	logger := logging.WithContext(ctx, o.logger)
	id, err := o.detector.Detect(ctx, res.ContentPath)
	if err != nil {
		res.State = StateFailed
		msg := fmt.Sprintf("Could not detect a game in %s; run '%s --detect --path=%s' to see what the engine finds",
			res.ContentPath, o.engineBinary, res.ContentPath)
		return res, wrap(services.ErrExternalTool, ErrDetectionFailure, "detect", msg, err)
	}
	if err := o.markers.Write(res.Name, id); err != nil {
		logging.WarnWithContext(logger, "marker write failed", "marker_write_failed",
			logging.String("marker", res.Name),
			logging.String(logging.FieldGameID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check write permissions on the library directory"),
			logging.String(logging.FieldImpact, "the game is detected again on the next launch"),
		)
	}
	res.State = StateResolved
	res.GameID = id
	res.Target = []string{"--path=" + res.ContentPath, id}
	logger.Info("game detected",
		logging.String(logging.FieldGameID, id),
		logging.String("path", res.ContentPath),
	)
	return res, nil
}

func (o *Orchestrator) validate(ctx context.Context, store *inistore.Store, res Resolution, id string) (Resolution, error) {
	logger := logging.WithContext(ctx, o.logger)
	canonical := canonicalLabels(store)

	if canonical[id] {
		return confirmed(res, id), nil
	}
	if base, _, ok := library.SplitSuffix(id); ok && canonical[base] {
		o.correctMarker(logger, res.Name, id, base)
		res.State = StateCorrected
		res.GameID = base
		res.Target = []string{base}
		return res, nil
	}
	if store != nil && store.Has(id) {
		return confirmed(res, id), nil
	}

	label, err := o.detector.Add(ctx, res.ContentPath)
	if err == nil {
		o.correctMarker(logger, res.Name, id, label)
		res.State = StateCorrected
		res.GameID = label
		res.Target = []string{label}
		return res, nil
	}

	fallback := wrap(services.ErrExternalTool, ErrUnresolvableEntry, "add",
		"No configuration entry for "+res.ContentPath, err)
	logging.WarnWithContext(logger, "starting engine by content path", "path_fallback",
		logging.String("marker", res.Name),
		logging.String("marker_id", id),
		logging.String("path", res.ContentPath),
		logging.Error(fallback),
		logging.String(logging.FieldErrorHint, "add the game in the engine's launcher, then run scummsync sync"),
		logging.String(logging.FieldImpact, "settings changed during this session will not persist"),
	)
	res.State = StatePathFallback
	res.Target = []string{"--path=" + res.ContentPath, "--auto-detect"}
	return res, nil
}

func (o *Orchestrator) correctMarker(logger *slog.Logger, name, from, to string) {
	impact := "the marker now names the canonical entry"
	attrs := []logging.Attr{
		logging.String("marker", name),
		logging.String("marker_id", from),
		logging.String(logging.FieldGameID, to),
		logging.Error(ErrAmbiguousMarker),
	}
	if err := o.markers.Write(name, to); err != nil {
		impact = "the marker still holds the old id"
		attrs = append(attrs, logging.String("write_error", err.Error()))
	}
	attrs = append(attrs,
		logging.String(logging.FieldErrorHint, "none needed unless this repeats for the same game"),
		logging.String(logging.FieldImpact, impact),
	)
	logging.WarnWithContext(logger, "marker corrected", "marker_corrected", attrs...)
}

func confirmed(res Resolution, id string) Resolution {
	res.State = StateConfirmed
	res.GameID = id
	res.Target = []string{id}
	return res
}

// canonicalLabels returns the labels of game sections whose label equals
// their gameid.
func canonicalLabels(store *inistore.Store) map[string]bool {
	labels := make(map[string]bool)
	if store == nil {
		return labels
	}
	for _, sec := range store.GameSections() {
		if sec.Label() == sec.GameID() {
			labels[sec.Label()] = true
		}
	}
	return labels
}

// IsDetectionFailure reports whether err aborted a launch before the engine
// started.
func IsDetectionFailure(err error) bool {
	return errors.Is(err, ErrDetectionFailure)
}
