package models

import (
	"fmt"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// State is the persistence state of a [Record].
type State int

const (
	// StateDraft records have no Firefly id yet.
	StateDraft State = iota
	// StateLoaded records exist in Firefly under their id.
	StateLoaded
	// StateDetached records were deleted from Firefly.
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateLoaded:
		return "loaded"
	case StateDetached:
		return "detached"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Record is a Firefly entity with a lifecycle.
type Record interface {
	Kind() Kind
	// ID is the Firefly id; empty unless the record is loaded.
	ID() string
	// SourceID is the Monarch id from the record's annotation.
	SourceID() string
	// Label is a human-readable name for logs and reports.
	Label() string
	State() State
	// Payload returns the Firefly attributes for create and update requests.
	Payload() (map[string]any, error)
	// Attach transitions a draft to loaded with the id Firefly assigned.
	Attach(id string) error
	// Detach transitions a loaded record to detached and clears its id.
	Detach() error
}

// Meta holds the lifecycle state shared by every record.
type Meta struct {
	id         string
	state      State
	annotation Annotation
}

func draftMeta(sourceID string) Meta {
	return Meta{state: StateDraft, annotation: NewAnnotation(sourceID)}
}

func loadedMeta(id, notes string) Meta {
	return Meta{id: id, state: StateLoaded, annotation: ParseAnnotation(notes)}
}

func (m *Meta) ID() string { return m.id }
func (m *Meta) State() State { return m.state }
func (m *Meta) SourceID() string { return m.annotation.SourceID() }
func (m *Meta) Annotation() Annotation { return m.annotation }
func (m *Meta) IsLoaded() bool { return m.state == StateLoaded }

func (m *Meta) Attach(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty id", shared.ErrInvalidRecord)
	case m.state != StateDraft:
		return fmt.Errorf("%w: cannot attach a %s record", shared.ErrInvalidRecord, m.state)
	}
	m.id = id
	m.state = StateLoaded
	return nil
}

func (m *Meta) Detach() error {
	if m.state != StateLoaded {
		return shared.ErrNotLoaded
	}
	m.state = StateDetached
	m.id = ""
	return nil
}

func requireName(kind Kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s require a name", shared.ErrInvalidRecord, kind)
	}
	return nil
}
