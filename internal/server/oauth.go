package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// CallbackPath is the redirect path registered for the OAuth client.
const CallbackPath = "/callback"

// OAuthResult carries the token or the failure of one authorization attempt.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the redirect of the authorization code flow.
type OAuthHandler struct {
	config   *oauth2.Config
	state    string
	verifier string
	results  chan OAuthResult
	once     sync.Once

	mu  sync.Mutex
	hit bool
}

// NewOAuthHandler creates a handler expecting state, exchanging codes with the PKCE verifier
// passed to [oauth2.S256ChallengeOption] when the authorization URL was built. An empty
// verifier disables PKCE.
func NewOAuthHandler(config *oauth2.Config, state, verifier string) *OAuthHandler {
	return &OAuthHandler{
		config:   config,
		state:    state,
		verifier: verifier,
		results:  make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{CallbackPath}
}

// AuthCodeURL is the page the user approves the client on.
func (h *OAuthHandler) AuthCodeURL() string {
	if h.verifier == "" {
		return h.config.AuthCodeURL(h.state)
	}
	return h.config.AuthCodeURL(h.state, oauth2.S256ChallengeOption(h.verifier))
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s: %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	var opts []oauth2.AuthCodeOption
	if h.verifier != "" {
		opts = append(opts, oauth2.VerifierOption(h.verifier))
	}
	token, err := h.config.Exchange(r.Context(), code, opts...)
	if err != nil {
		h.Send(OAuthResult{err: exchangeError(err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return fmt.Errorf("%w: token exchange returned %d: %s", shared.ErrAuthFailed, re.Response.StatusCode, re.ErrorCode)
	}
	return fmt.Errorf("token exchange failed: %w", err)
}

// Send delivers result if none was delivered yet.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>fmbridge: Authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #ecf0f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-top: 3px solid #1E6581; box-shadow: 0 1px 2px rgba(0,0,0,0.1); }
        h1 { color: #00A65A; margin: 0 0 1rem 0; }
        p { color: #777777; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Firefly III connected</h1>
        <p>The token was handed to fmbridge. You can close this window.</p>
    </div>
</body>
</html>
`
