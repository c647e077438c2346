package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// newTokenServer fakes the Firefly token endpoint, recording the form of each exchange.
func newTokenServer(t *testing.T, status int) (*httptest.Server, *url.Values) {
	t.Helper()
	form := &url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm(), "failed to parse form")
		*form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		io.WriteString(w, `{"access_token":"firefly-access","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv, form
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "7",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "http://firefly.test/oauth/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func callback(t *testing.T, l *Listener, query string) int {
	t.Helper()
	resp, err := http.Get(l.RedirectURL() + "?" + query)
	require.NoError(t, err, "callback request failed")
	resp.Body.Close()
	return resp.StatusCode
}

func listen(t *testing.T, h *OAuthHandler) *Listener {
	t.Helper()
	l, err := Listen("127.0.0.1:0", h, shared.NewLogger(io.Discard))
	require.NoError(t, err, "failed to listen")
	return l
}

func TestOAuthFlow(t *testing.T) {
	t.Run("exchanges the code with the PKCE verifier", func(t *testing.T) {
		tokens, form := newTokenServer(t, http.StatusOK)
		verifier := oauth2.GenerateVerifier()
		h := NewOAuthHandler(oauthConfig(tokens.URL), "state-1", verifier)
		l := listen(t, h)

		assert.Equal(t, http.StatusOK, callback(t, l, "state=state-1&code=abc"))

		token, err := l.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "firefly-access", token.AccessToken)
		assert.Equal(t, "abc", form.Get("code"))
		assert.Equal(t, verifier, form.Get("code_verifier"))
	})

	t.Run("rejects a mismatched state", func(t *testing.T) {
		tokens, _ := newTokenServer(t, http.StatusOK)
		l := listen(t, NewOAuthHandler(oauthConfig(tokens.URL), "expected", ""))

		assert.Equal(t, http.StatusBadRequest, callback(t, l, "state=forged&code=abc"))
		_, err := l.Wait(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("reports a denied authorization", func(t *testing.T) {
		tokens, _ := newTokenServer(t, http.StatusOK)
		l := listen(t, NewOAuthHandler(oauthConfig(tokens.URL), "s", ""))

		callback(t, l, "state=s&error=access_denied&error_description=denied")
		_, err := l.Wait(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.ErrorContains(t, err, "access_denied")
	})

	t.Run("reports a failed exchange", func(t *testing.T) {
		tokens, _ := newTokenServer(t, http.StatusBadRequest)
		l := listen(t, NewOAuthHandler(oauthConfig(tokens.URL), "s", ""))

		assert.Equal(t, http.StatusInternalServerError, callback(t, l, "state=s&code=abc"))
		_, err := l.Wait(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("processes only the first callback", func(t *testing.T) {
		tokens, _ := newTokenServer(t, http.StatusOK)
		h := NewOAuthHandler(oauthConfig(tokens.URL), "s", "")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusBadRequest, second.Code)

		result := <-h.Result()
		assert.NotNil(t, result.Token, "first result carries the token, got %v", result.Error())
		_, ok := <-h.Result()
		assert.False(t, ok, "expected result channel to be closed")
	})

	t.Run("times out without a callback", func(t *testing.T) {
		l := listen(t, NewOAuthHandler(oauthConfig("http://unused.test"), "s", ""))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := l.Wait(ctx)
		assert.ErrorIs(t, err, shared.ErrTimeout)
	})

	t.Run("auth URL carries the challenge", func(t *testing.T) {
		h := NewOAuthHandler(oauthConfig("http://unused.test"), "s", oauth2.GenerateVerifier())
		u, err := url.Parse(h.AuthCodeURL())
		require.NoError(t, err, "invalid auth URL")

		q := u.Query()
		assert.Equal(t, "s", q.Get("state"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
	})
}

func TestRouter(t *testing.T) {
	t.Run("applies middleware in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("outer"), mark("inner"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("redirect URL keeps the requested host", func(t *testing.T) {
		h := NewOAuthHandler(oauthConfig("http://unused.test"), "s", "")
		l, err := Listen("localhost:0", h, shared.NewLogger(io.Discard))
		require.NoError(t, err, "failed to listen")
		defer l.shutdown()

		assert.True(t, strings.HasPrefix(l.RedirectURL(), "http://"), l.RedirectURL())
		assert.True(t, strings.HasSuffix(l.RedirectURL(), CallbackPath), l.RedirectURL())
	})
}
