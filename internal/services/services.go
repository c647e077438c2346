// package services defines the source and target service interfaces and their HTTP clients
//
// Monarch (GraphQL), Firefly III (JSON:API)
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// SourceService reads raw documents from the personal-finance service records are mirrored from.
//
// Each method returns the GraphQL `data` member unchanged; unpacking is left to the translators.
type SourceService interface {
	// Authenticate stores credentials for subsequent requests. Expects credentials["token"].
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetAccounts returns a document with an `accounts` array.
	GetAccounts(ctx context.Context) (json.RawMessage, error)

	// GetTransactionCategories returns a document with a `categories` array.
	GetTransactionCategories(ctx context.Context) (json.RawMessage, error)

	// GetTags returns a document with a `tags` array.
	GetTags(ctx context.Context) (json.RawMessage, error)

	// GetTransactions returns a document with an `allTransactions.results` array.
	GetTransactions(ctx context.Context) (json.RawMessage, error)

	// Name returns the name of the service (e.g., "Monarch")
	Name() string
}

// TargetService persists records in the ledger service records are mirrored into.
type TargetService interface {
	// List returns every persisted resource of the kind, following pagination.
	List(ctx context.Context, kind models.Kind) ([]Resource, error)

	// Get retrieves a single resource by id.
	Get(ctx context.Context, kind models.Kind, id string) (*Resource, error)

	// Create stores a new resource and returns it as persisted.
	Create(ctx context.Context, kind models.Kind, payload map[string]any) (*Resource, error)

	// Update replaces the attributes of an existing resource.
	Update(ctx context.Context, kind models.Kind, id string, payload map[string]any) (*Resource, error)

	// Delete removes a resource by id.
	Delete(ctx context.Context, kind models.Kind, id string) error

	// Name returns the name of the service (e.g., "Firefly III")
	Name() string
}

// Resource is a JSON:API resource object.
type Resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes"`
}

// Decode unmarshals the resource attributes into v.
func (r Resource) Decode(v any) error {
	return json.Unmarshal(r.Attributes, v)
}

// Fetch dispatches to the source method that returns documents of the given kind.
func Fetch(ctx context.Context, src SourceService, kind models.Kind) (json.RawMessage, error) {
	switch kind {
	case models.KindAccount:
		return src.GetAccounts(ctx)
	case models.KindCategory:
		return src.GetTransactionCategories(ctx)
	case models.KindTag:
		return src.GetTags(ctx)
	case models.KindTransaction:
		return src.GetTransactions(ctx)
	default:
		return nil, unknownKind(kind)
	}
}

func unknownKind(kind models.Kind) error {
	return fmt.Errorf("%w: %s", shared.ErrUnknownKind, kind)
}

// statusError maps a non-2xx response to [shared.ErrAPIRequest] carrying the service message.
// Auth, not-found and server failures additionally wrap a more specific sentinel.
func statusError(service string, status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}

	var cause error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		cause = shared.ErrAuthFailed
	case status == http.StatusNotFound:
		cause = shared.ErrRecordNotFound
	case status >= http.StatusInternalServerError:
		cause = shared.ErrServiceUnavailable
	}

	if cause == nil {
		return fmt.Errorf("%w: %s status %d: %s", shared.ErrAPIRequest, service, status, message)
	}
	return fmt.Errorf("%w: %w: %s status %d: %s", shared.ErrAPIRequest, cause, service, status, message)
}
