package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// StubSource serves source documents from JSON files, falling back to a wrapped [SourceService]
// for kinds without a file.
type StubSource struct {
	base  SourceService
	files map[models.Kind]string
}

// NewStubSource wraps base (which may be nil) with per-kind document files.
func NewStubSource(base SourceService, files map[models.Kind]string) *StubSource {
	stubbed := make(map[models.Kind]string, len(files))
	for kind, path := range files {
		if path != "" {
			stubbed[kind] = path
		}
	}
	return &StubSource{base: base, files: stubbed}
}

// Stubbed reports whether the kind is served from a file.
func (s *StubSource) Stubbed(kind models.Kind) bool {
	_, ok := s.files[kind]
	return ok
}

func (s *StubSource) Name() string {
	if s.base == nil {
		return "Monarch (stub)"
	}
	if len(s.files) == 0 {
		return s.base.Name()
	}
	return s.base.Name() + " (stub)"
}

// Authenticate forwards to the wrapped service. A source made only of files needs no credentials.
func (s *StubSource) Authenticate(ctx context.Context, credentials map[string]string) error {
	if s.base == nil {
		return nil
	}
	return s.base.Authenticate(ctx, credentials)
}

func (s *StubSource) GetAccounts(ctx context.Context) (json.RawMessage, error) {
	return s.load(ctx, models.KindAccount)
}

func (s *StubSource) GetTransactionCategories(ctx context.Context) (json.RawMessage, error) {
	return s.load(ctx, models.KindCategory)
}

func (s *StubSource) GetTags(ctx context.Context) (json.RawMessage, error) {
	return s.load(ctx, models.KindTag)
}

func (s *StubSource) GetTransactions(ctx context.Context) (json.RawMessage, error) {
	return s.load(ctx, models.KindTransaction)
}

func (s *StubSource) load(ctx context.Context, kind models.Kind) (json.RawMessage, error) {
	path, ok := s.files[kind]
	if !ok {
		if s.base == nil {
			return nil, fmt.Errorf("%w: no source configured for %s", shared.ErrServiceUnavailable, kind)
		}
		return Fetch(ctx, s.base, kind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s stub: %w", kind, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", shared.ErrInvalidInput, path)
	}
	return json.RawMessage(data), nil
}
