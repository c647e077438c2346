package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/fmbridge/internal/shared"
)

func newMonarchServer(t *testing.T, handler func(req graphQLRequest) (int, string)) *MonarchService {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Token monarch-token", r.Header.Get("Authorization"))

		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req), "failed to decode request")

		status, body := handler(req)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	srv := NewMonarchService(server.URL, server.Client())
	require.NoError(t, srv.Authenticate(context.Background(), map[string]string{"token": "monarch-token"}), "Authenticate()")
	return srv
}

func TestMonarchService(t *testing.T) {
	t.Run("New Defaults", func(t *testing.T) {
		srv := NewMonarchService("", nil)

		assert.Equal(t, DefaultMonarchURL, srv.apiURL)
		assert.Equal(t, "Monarch", srv.Name())
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv := NewMonarchService("", nil)

		assert.ErrorIs(t, srv.Authenticate(context.Background(), map[string]string{}), shared.ErrMissingCredentials)
		_, err := srv.GetAccounts(context.Background())
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("Operations", func(t *testing.T) {
		tests := []struct {
			name      string
			operation string
			call      func(*MonarchService, context.Context) (json.RawMessage, error)
			field     string
		}{
			{"accounts", "GetAccounts", (*MonarchService).GetAccounts, "accounts"},
			{"categories", "GetCategories", (*MonarchService).GetTransactionCategories, "categories"},
			{"tags", "GetHouseholdTransactionTags", (*MonarchService).GetTags, "tags"},
			{"transactions", "GetTransactionsList", (*MonarchService).GetTransactions, "allTransactions"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := newMonarchServer(t, func(req graphQLRequest) (int, string) {
					assert.Equal(t, tt.operation, req.OperationName)
					assert.Contains(t, req.Query, tt.field)
					return http.StatusOK, `{"data":{"` + tt.field + `":[]}}`
				})

				doc, err := tt.call(srv, context.Background())
				require.NoError(t, err)

				var decoded map[string]json.RawMessage
				require.NoError(t, json.Unmarshal(doc, &decoded), "expected a JSON object, got %s", doc)
				assert.Contains(t, decoded, tt.field)
			})
		}
	})

	t.Run("Transactions Variables", func(t *testing.T) {
		srv := newMonarchServer(t, func(req graphQLRequest) (int, string) {
			assert.Equal(t, float64(25), req.Variables["limit"])
			return http.StatusOK, `{"data":{"allTransactions":{"results":[]}}}`
		})
		srv.TransactionLimit = 25

		_, err := srv.GetTransactions(context.Background())
		require.NoError(t, err)
	})

	t.Run("GraphQL Errors", func(t *testing.T) {
		srv := newMonarchServer(t, func(graphQLRequest) (int, string) {
			return http.StatusOK, `{"data":null,"errors":[{"message":"field tags unknown"}]}`
		})

		_, err := srv.GetTags(context.Background())
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.ErrorContains(t, err, "field tags unknown")
	})

	t.Run("HTTP Status Errors", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrAuthFailed},
			{http.StatusBadRequest, shared.ErrAPIRequest},
			{http.StatusServiceUnavailable, shared.ErrServiceUnavailable},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv := newMonarchServer(t, func(graphQLRequest) (int, string) {
					return tt.status, "nope"
				})

				_, err := srv.GetAccounts(context.Background())
				assert.ErrorIs(t, err, tt.want)
				assert.ErrorIs(t, err, shared.ErrAPIRequest, "every status error wraps ErrAPIRequest")
			})
		}
	})

	t.Run("Malformed Response", func(t *testing.T) {
		srv := newMonarchServer(t, func(graphQLRequest) (int, string) {
			return http.StatusOK, "<html>"
		})

		_, err := srv.GetAccounts(context.Background())
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})
}
