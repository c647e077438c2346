package mapping

import (
	"context"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// Store applies record lifecycle transitions against the target service and keeps the index in
// step with them.
type Store struct {
	target services.TargetService
	index  *index.Index
}

// NewStore creates a store. ix may be nil when no index needs updating.
func NewStore(target services.TargetService, ix *index.Index) *Store {
	return &Store{target: target, index: ix}
}

// Create persists a draft and attaches the assigned id. Creating a loaded record is a no-op.
func (s *Store) Create(ctx context.Context, r models.Record) (models.Record, error) {
	switch r.State() {
	case models.StateLoaded:
		return r, nil
	case models.StateDetached:
		return nil, fmt.Errorf("%w: cannot create detached %s %s", shared.ErrInvalidRecord, r.Kind(), r.Label())
	}

	payload, err := r.Payload()
	if err != nil {
		return nil, err
	}

	res, err := s.target.Create(ctx, r.Kind(), payload)
	if err != nil {
		return nil, err
	}
	if err := r.Attach(res.ID); err != nil {
		return nil, err
	}

	if s.index != nil {
		s.index.Observe(r)
	}
	return r, nil
}

// Update sends the record's current attributes to the target service.
func (s *Store) Update(ctx context.Context, r models.Record) error {
	if r.State() != models.StateLoaded {
		return fmt.Errorf("%w: cannot update %s %s", shared.ErrNotLoaded, r.Kind(), r.Label())
	}

	payload, err := r.Payload()
	if err != nil {
		return err
	}
	_, err = s.target.Update(ctx, r.Kind(), r.ID(), payload)
	return err
}

// Delete removes the record from the target service and detaches it.
func (s *Store) Delete(ctx context.Context, r models.Record) error {
	if r.State() != models.StateLoaded {
		return fmt.Errorf("%w: cannot delete %s %s", shared.ErrNotLoaded, r.Kind(), r.Label())
	}

	if err := s.target.Delete(ctx, r.Kind(), r.ID()); err != nil {
		return err
	}
	if err := r.Detach(); err != nil {
		return err
	}

	if s.index != nil {
		s.index.Remove(r)
	}
	return nil
}
