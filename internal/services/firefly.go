// Firefly III JSON:API implementation of [TargetService]
//
// API reference: https://api-docs.firefly-iii.org/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

const (
	defaultFireflyHost = "http://localhost:8080"
	defaultPageSize    = 100
	jsonAPIMediaType   = "application/vnd.api+json"
)

type pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type listEnvelope struct {
	Data []Resource `json:"data"`
	Meta struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

type singleEnvelope struct {
	Data Resource `json:"data"`
}

type fireflyError struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// FireflyAbout is the system information returned by /api/v1/about.
type FireflyAbout struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	PHPVersion string `json:"php_version"`
	OS         string `json:"os"`
	Driver     string `json:"driver"`
}

// FireflyService implements [TargetService] for a Firefly III instance.
//
// Requests are authorized with a personal access token through an [oauth2.StaticTokenSource]
// and throttled by a shared [rate.Limiter].
type FireflyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
}

// NewFireflyService creates a Firefly client. When client is non-nil its transport carries the
// authorized requests.
func NewFireflyService(cfg shared.FireflyConfig, client *http.Client) *FireflyService {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = defaultFireflyHost
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &FireflyService{
		baseURL:    host,
		httpClient: FireflyClient(cfg.Token, client),
		limiter:    rate.NewLimiter(limit, 1),
		pageSize:   pageSize,
	}
}

// FireflyClient returns an HTTP client that sends token as a bearer credential.
func FireflyClient(token string, base *http.Client) *http.Client {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return oauth2.NewClient(ctx, src)
}

func (f *FireflyService) Name() string {
	return "Firefly III"
}

// OAuthConfig describes the authorization code flow of the instance's OAuth server for a
// client registered under Profile → OAuth.
func (f *FireflyService) OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.baseURL + "/oauth/authorize",
			TokenURL:  f.baseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// BaseURL returns the configured host.
func (f *FireflyService) BaseURL() string {
	return f.baseURL
}

// HTTPClient returns the authorized client.
func (f *FireflyService) HTTPClient() *http.Client {
	return f.httpClient
}

// doRequest performs an authorized request and decodes a JSON body into result when non-nil.
func (f *FireflyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", jsonAPIMediaType)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: firefly %s %s: %v", shared.ErrServiceUnavailable, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("firefly", resp.StatusCode, readFireflyError(resp.Body))
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode firefly response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// readFireflyError extracts the message and any field validation errors from an error body.
func readFireflyError(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}

	var body fireflyError
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		return strings.TrimSpace(string(data))
	}

	if len(body.Errors) == 0 {
		return body.Message
	}

	fields := make([]string, 0, len(body.Errors))
	for field := range body.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	details := make([]string, 0, len(fields))
	for _, field := range fields {
		details = append(details, field+": "+strings.Join(body.Errors[field], ", "))
	}
	return body.Message + " (" + strings.Join(details, "; ") + ")"
}

// List walks every page of the kind's collection.
func (f *FireflyService) List(ctx context.Context, kind models.Kind) ([]Resource, error) {
	var all []Resource

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(f.pageSize))

		var envelope listEnvelope
		if err := f.doRequest(ctx, http.MethodGet, kind.Endpoint()+"?"+query.Encode(), nil, &envelope); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind, err)
		}

		all = append(all, envelope.Data...)

		p := envelope.Meta.Pagination
		if len(envelope.Data) == 0 || p.TotalPages == 0 || page >= p.TotalPages {
			break
		}
	}

	return all, nil
}

func (f *FireflyService) Get(ctx context.Context, kind models.Kind, id string) (*Resource, error) {
	var envelope singleEnvelope
	if err := f.doRequest(ctx, http.MethodGet, resourcePath(kind, id), nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (f *FireflyService) Create(ctx context.Context, kind models.Kind, payload map[string]any) (*Resource, error) {
	var envelope singleEnvelope
	if err := f.doRequest(ctx, http.MethodPost, kind.Endpoint(), payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	if envelope.Data.ID == "" {
		return nil, fmt.Errorf("%w: firefly returned no id for created %s", shared.ErrAPIRequest, kind)
	}
	return &envelope.Data, nil
}

func (f *FireflyService) Update(ctx context.Context, kind models.Kind, id string, payload map[string]any) (*Resource, error) {
	var envelope singleEnvelope
	if err := f.doRequest(ctx, http.MethodPut, resourcePath(kind, id), payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	return &envelope.Data, nil
}

func (f *FireflyService) Delete(ctx context.Context, kind models.Kind, id string) error {
	if err := f.doRequest(ctx, http.MethodDelete, resourcePath(kind, id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return nil
}

// About returns the instance's system information. It doubles as a token check.
func (f *FireflyService) About(ctx context.Context) (*FireflyAbout, error) {
	var envelope struct {
		Data FireflyAbout `json:"data"`
	}
	if err := f.doRequest(ctx, http.MethodGet, "/api/v1/about", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// ProfileURL is the page where personal access tokens are issued.
func (f *FireflyService) ProfileURL() string {
	return f.baseURL + "/profile"
}

func resourcePath(kind models.Kind, id string) string {
	return kind.Endpoint() + "/" + url.PathEscape(id)
}
