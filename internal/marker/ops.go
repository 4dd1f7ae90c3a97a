package marker

import (
	"errors"
	"fmt"
)

// OpKind is the action a marker operation performs.
type OpKind string

const (
	OpWrite  OpKind = "write"
	OpDelete OpKind = "delete"
)

// Op is one planned change to a marker file.
type Op struct {
	Kind   OpKind
	Name   string
	ID     string
	Reason string
}

func (o Op) String() string {
	if o.Kind == OpWrite {
		return fmt.Sprintf("write %s=%s (%s)", o.Name, o.ID, o.Reason)
	}
	return fmt.Sprintf("delete %s (%s)", o.Name, o.Reason)
}

// Apply executes ops in order. Every op is attempted; failures are joined.
func (s *Store) Apply(ops []Op) error {
	var errs []error
	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpWrite:
			err = s.Write(op.Name, op.ID)
		case OpDelete:
			err = s.Delete(op.Name)
		default:
			err = fmt.Errorf("unknown marker op %q", op.Kind)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyTo replays ops onto a snapshot without touching the filesystem.
func (s Snapshot) ApplyTo(ops []Op) Snapshot {
	out := make(Snapshot, len(s))
	for name, m := range s {
		out[name] = m
	}
	for _, op := range ops {
		switch op.Kind {
		case OpWrite:
			m := Marker{Name: op.Name, State: Empty}
			if op.ID != "" {
				m.State = Set
				m.ID = op.ID
			}
			if prev, ok := out[op.Name]; ok {
				m.Path = prev.Path
			}
			out[op.Name] = m
		case OpDelete:
			delete(out, op.Name)
		}
	}
	return out
}
