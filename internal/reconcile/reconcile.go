package reconcile

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/logging"
	"scummsync/internal/marker"
)

// ErrPostSyncInconsistency marks a pass whose post-check found ids it could
// not pair up. It is a warning, never a reason to abort.
var ErrPostSyncInconsistency = errors.New("post-sync inconsistency")

// Stage names used in logs and reports.
const (
	StageSurplus      = "surplus"
	StageOrphans      = "orphans"
	StageCanonicalize = "canonicalize"
	StageBackfill     = "backfill"
	StagePostCheck    = "postcheck"
)

// Removal records a section dropped from the store.
type Removal struct {
	Label  string
	Path   string
	Stage  string
	Reason string
}

// Rename records a label change made during canonicalization.
type Rename struct {
	From      string
	To        string
	Displaced string
}

// Diagnostic describes one post-check finding.
type Diagnostic struct {
	Kind    string
	ID      string
	Markers []string
	Labels  []string
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagMarkerWithoutSection:
		return fmt.Sprintf("marker %s holds id %q but no section has it", strings.Join(d.Markers, ","), d.ID)
	case DiagSectionWithoutMarker:
		return fmt.Sprintf("section [%s] has no marker with id %q", strings.Join(d.Labels, ","), d.ID)
	case DiagDuplicateMarker:
		return fmt.Sprintf("id %q is claimed by markers %s", d.ID, strings.Join(d.Markers, ","))
	case DiagDuplicateSection:
		return fmt.Sprintf("id %q is carried by sections %s", d.ID, strings.Join(d.Labels, ","))
	case DiagMissingGameID:
		return fmt.Sprintf("section [%s] has no gameid", strings.Join(d.Labels, ","))
	case DiagBlockedRename:
		return fmt.Sprintf("section [%s] cannot take label %q held by a non-game section", strings.Join(d.Labels, ","), d.ID)
	default:
		return d.Kind + ": " + d.ID
	}
}

// Diagnostic kinds.
const (
	DiagMarkerWithoutSection = "marker_without_section"
	DiagSectionWithoutMarker = "section_without_marker"
	DiagDuplicateMarker      = "duplicate_marker"
	DiagDuplicateSection     = "duplicate_section"
	DiagMissingGameID        = "missing_gameid"
	DiagBlockedRename        = "blocked_rename"
)

// Report summarizes one reconciliation pass.
type Report struct {
	Removed     []Removal
	Renamed     []Rename
	MarkerOps   []marker.Op
	Diagnostics []Diagnostic
	Sections    int
}

// StoreChanged reports whether the pass edited the configuration store.
func (r Report) StoreChanged() bool {
	return len(r.Removed) > 0 || len(r.Renamed) > 0
}

// Changed reports whether the pass planned any change at all.
func (r Report) Changed() bool {
	return r.StoreChanged() || len(r.MarkerOps) > 0
}

// Err returns an ErrPostSyncInconsistency error when the post-check found
// anything, nil otherwise.
func (r Report) Err() error {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	parts := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		parts = append(parts, d.String())
	}
	return fmt.Errorf("%w: %s", ErrPostSyncInconsistency, strings.Join(parts, "; "))
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "reconcile")
		}
	}
}

// Reconciler runs reconciliation passes for one library root.
type Reconciler struct {
	root   library.Root
	logger *slog.Logger
}

// New returns a Reconciler for root.
func New(root library.Root, opts ...Option) *Reconciler {
	r := &Reconciler{root: root, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs stages 1 to 4 and the post-check. store is edited in place;
// markers is left untouched and the planned marker changes are returned in
// the report.
func (r *Reconciler) Reconcile(store *inistore.Store, markers marker.Snapshot) Report {
	p := &pass{
		root:    r.root,
		store:   store,
		markers: markers.ApplyTo(nil),
		logger:  r.logger,
	}
	p.removeSurplus()
	p.removeOrphanMarkers()
	p.canonicalize()
	p.backfillMarkers()
	p.postCheck()
	p.report.Sections = len(store.GameSections())

	r.logger.Debug("reconciliation pass complete",
		logging.Int("sections", p.report.Sections),
		logging.Int("removed", len(p.report.Removed)),
		logging.Int("renamed", len(p.report.Renamed)),
		logging.Int("marker_ops", len(p.report.MarkerOps)),
		logging.Int("diagnostics", len(p.report.Diagnostics)),
	)
	return p.report
}

// pass carries the working state of one Reconcile call. markers always
// reflects the planned ops.
type pass struct {
	root    library.Root
	store   *inistore.Store
	markers marker.Snapshot
	logger  *slog.Logger
	report  Report
}

func (p *pass) plan(op marker.Op) {
	p.report.MarkerOps = append(p.report.MarkerOps, op)
	p.markers = p.markers.ApplyTo([]marker.Op{op})
}

func (p *pass) contentPath(sec *inistore.Section) string {
	return p.root.ContentPath(sec.Path())
}

func (p *pass) markerName(sec *inistore.Section) string {
	return p.root.MarkerName(p.contentPath(sec))
}

// sectionID is the id a section should be known by: its gameid, or its label
// when the engine wrote none.
func sectionID(sec *inistore.Section) string {
	if id := strings.TrimSpace(sec.GameID()); id != "" {
		return id
	}
	return sec.Label()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
