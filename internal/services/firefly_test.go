package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

func newFireflyServer(t *testing.T, handler http.HandlerFunc) *FireflyService {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer firefly-token", r.Header.Get("Authorization"))
		assert.Equal(t, jsonAPIMediaType, r.Header.Get("Accept"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := shared.FireflyConfig{Host: server.URL, Token: "firefly-token", PageSize: 2}
	return NewFireflyService(cfg, server.Client())
}

func TestFireflyService(t *testing.T) {
	ctx := context.Background()

	t.Run("New Defaults", func(t *testing.T) {
		srv := NewFireflyService(shared.FireflyConfig{Token: "x"}, nil)

		assert.Equal(t, defaultFireflyHost, srv.BaseURL())
		assert.Equal(t, defaultPageSize, srv.pageSize)
		assert.Equal(t, defaultFireflyHost+"/profile", srv.ProfileURL())
	})

	t.Run("OAuth Config", func(t *testing.T) {
		srv := NewFireflyService(shared.FireflyConfig{Host: "https://ff.example.com/"}, nil)
		conf := srv.OAuthConfig("7", "secret", "http://localhost:3000/callback")

		assert.Equal(t, "https://ff.example.com/oauth/authorize", conf.Endpoint.AuthURL)
		assert.Equal(t, "https://ff.example.com/oauth/token", conf.Endpoint.TokenURL)
		assert.Equal(t, "7", conf.ClientID)
		assert.Equal(t, "http://localhost:3000/callback", conf.RedirectURL)
	})

	t.Run("List Follows Pagination", func(t *testing.T) {
		var pages []string
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/categories", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("limit"))

			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			pages = append(pages, r.URL.Query().Get("page"))

			ids := map[int][]string{1: {"1", "2"}, 2: {"3"}}[page]
			data := make([]string, 0, len(ids))
			for _, id := range ids {
				data = append(data, fmt.Sprintf(`{"id":%q,"type":"categories","attributes":{"name":"c%s"}}`, id, id))
			}
			fmt.Fprintf(w, `{"data":[%s],"meta":{"pagination":{"total":3,"count":%d,"per_page":2,"current_page":%d,"total_pages":2}}}`,
				strings.Join(data, ","), len(ids), page)
		})

		resources, err := srv.List(ctx, models.KindCategory)
		require.NoError(t, err)
		require.Len(t, resources, 3)
		assert.Equal(t, []string{"1", "2"}, pages)

		var attrs struct {
			Name string `json:"name"`
		}
		require.NoError(t, resources[2].Decode(&attrs))
		assert.Equal(t, "c3", attrs.Name)
	})

	t.Run("List Stops Without Pagination Meta", func(t *testing.T) {
		calls := 0
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"data":[{"id":"1","type":"tags","attributes":{}}]}`))
		})

		_, err := srv.List(ctx, models.KindTag)
		require.NoError(t, err)
		assert.Equal(t, 1, calls, "expected a single request")
	})

	t.Run("Create", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/tags", r.URL.Path)

			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			assert.Equal(t, "vacation", payload["tag"])

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"data":{"id":"T1","type":"tags","attributes":{"tag":"vacation"}}}`))
		})

		resource, err := srv.Create(ctx, models.KindTag, map[string]any{"tag": "vacation"})
		require.NoError(t, err)
		assert.Equal(t, "T1", resource.ID)
		assert.Equal(t, "tags", resource.Type)
	})

	t.Run("Create Validation Error", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"The given data was invalid.","errors":{"name":["This account name is already in use."]}}`))
		})

		_, err := srv.Create(ctx, models.KindAccount, map[string]any{"name": "Checking"})
		require.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.ErrorContains(t, err, "already in use", "field errors are part of the message")
	})

	t.Run("Create Without ID", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{}}`))
		})

		_, err := srv.Create(ctx, models.KindTag, map[string]any{})
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("Get Not Found", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/accounts/99", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Resource not found"}`))
		})

		_, err := srv.Get(ctx, models.KindAccount, "99")
		assert.ErrorIs(t, err, shared.ErrRecordNotFound)
	})

	t.Run("Update And Delete", func(t *testing.T) {
		var methods []string
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			methods = append(methods, r.Method+" "+r.URL.Path)
			if r.Method == http.MethodDelete {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Write([]byte(`{"data":{"id":"5","type":"categories","attributes":{"name":"Dining"}}}`))
		})

		_, err := srv.Update(ctx, models.KindCategory, "5", map[string]any{"name": "Dining"})
		require.NoError(t, err, "Update()")
		require.NoError(t, srv.Delete(ctx, models.KindCategory, "5"), "Delete()")

		assert.Equal(t, []string{"PUT /api/v1/categories/5", "DELETE /api/v1/categories/5"}, methods)
	})

	t.Run("About", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"version":"6.1.0","api_version":"2.0.0","os":"Linux"}}`))
		})

		about, err := srv.About(ctx)
		require.NoError(t, err)
		assert.Equal(t, "6.1.0", about.Version)
		assert.Equal(t, "2.0.0", about.APIVersion)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthenticated."}`))
		})

		_, err := srv.About(ctx)
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("Rate Limited Requests Honor Context", func(t *testing.T) {
		srv := newFireflyServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{}}`))
		})
		srv.limiter.SetLimit(0.001)
		srv.limiter.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := srv.About(ctx)
		assert.Error(t, err, "the limiter wait fails once the context expires")
	})
}

func TestStatusError(t *testing.T) {
	err := statusError("firefly", http.StatusTeapot, "")
	assert.ErrorIs(t, err, shared.ErrAPIRequest)
	assert.ErrorContains(t, err, http.StatusText(http.StatusTeapot), "status text fallback")
}
