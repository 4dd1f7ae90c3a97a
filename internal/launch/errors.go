package launch

import (
	"errors"

	"scummsync/internal/services"
)

var (
	// ErrDetectionFailure means no game id could be established for an entry
	// without a marker. The engine is never started.
	ErrDetectionFailure = errors.New("detection failure")
	// ErrAmbiguousMarker means a marker held a disambiguated or unknown id
	// that had to be corrected.
	ErrAmbiguousMarker = errors.New("ambiguous marker")
	// ErrUnresolvableEntry means the engine is started by content path because
	// no configuration entry could be established.
	ErrUnresolvableEntry = errors.New("unresolvable entry")
	// ErrLocked means another launch or sync holds the lock.
	ErrLocked = errors.New("another scummsync run is active")
)

func wrap(marker error, kind error, operation, message string, err error) error {
	return services.Wrap(marker, "launch", operation, message, errors.Join(kind, err))
}
