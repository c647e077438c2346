// Monarch GraphQL implementation of [SourceService]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/fmbridge/internal/shared"
)

const (
	DefaultMonarchURL = "https://api.monarchmoney.com/graphql"
	// DefaultTransactionLimit is the page size requested for allTransactions.
	DefaultTransactionLimit = 1000
)

const accountsQuery = `query GetAccounts {
  accounts {
    id
    displayName
    currentBalance
    includeInNetWorth
    type { name display }
    subtype { name display }
    institution { id name }
  }
}`

const categoriesQuery = `query GetCategories {
  categories {
    id
    name
    order
    isSystemCategory
    group { id name type }
  }
}`

const tagsQuery = `query GetHouseholdTransactionTags {
  tags: householdTransactionTags {
    id
    name
    color
    order
  }
}`

const transactionsQuery = `query GetTransactionsList($offset: Int, $limit: Int, $filters: TransactionFilterInput, $orderBy: TransactionOrdering) {
  allTransactions(filters: $filters) {
    totalCount
    results(offset: $offset, limit: $limit, orderBy: $orderBy) {
      id
      amount
      date
      plaidName
      notes
      pending
      category { id name }
      merchant { id name }
      account { id displayName }
      tags { id name }
    }
  }
}`

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// MonarchService implements [SourceService] against the Monarch GraphQL API.
type MonarchService struct {
	apiURL           string
	token            string
	httpClient       *http.Client
	TransactionLimit int
}

// NewMonarchService creates a Monarch client. An empty apiURL selects [DefaultMonarchURL].
func NewMonarchService(apiURL string, client *http.Client) *MonarchService {
	if apiURL == "" {
		apiURL = DefaultMonarchURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &MonarchService{
		apiURL:           apiURL,
		httpClient:       client,
		TransactionLimit: DefaultTransactionLimit,
	}
}

func (m *MonarchService) Name() string {
	return "Monarch"
}

// Authenticate stores the session token sent as `Authorization: Token <token>`.
func (m *MonarchService) Authenticate(ctx context.Context, credentials map[string]string) error {
	token := strings.TrimSpace(credentials["token"])
	if token == "" {
		return fmt.Errorf("%w: missing token in credentials", shared.ErrMissingCredentials)
	}

	m.token = token
	return nil
}

func (m *MonarchService) GetAccounts(ctx context.Context) (json.RawMessage, error) {
	return m.query(ctx, "GetAccounts", accountsQuery, map[string]any{})
}

func (m *MonarchService) GetTransactionCategories(ctx context.Context) (json.RawMessage, error) {
	return m.query(ctx, "GetCategories", categoriesQuery, map[string]any{})
}

func (m *MonarchService) GetTags(ctx context.Context) (json.RawMessage, error) {
	return m.query(ctx, "GetHouseholdTransactionTags", tagsQuery, map[string]any{})
}

func (m *MonarchService) GetTransactions(ctx context.Context) (json.RawMessage, error) {
	variables := map[string]any{
		"offset":  0,
		"limit":   m.TransactionLimit,
		"orderBy": "date",
		"filters": map[string]any{},
	}
	return m.query(ctx, "GetTransactionsList", transactionsQuery, variables)
}

// query posts a GraphQL operation and returns the response's data member.
func (m *MonarchService) query(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	if m.token == "" {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	body, err := json.Marshal(graphQLRequest{OperationName: operation, Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+m.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Client-Platform", "web")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request failed: %v", shared.ErrServiceUnavailable, operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("monarch", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var gql graphQLResponse
	if err := json.Unmarshal(data, &gql); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, operation, err)
	}

	if len(gql.Errors) > 0 {
		messages := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("%w: %s: %s", shared.ErrAPIRequest, operation, strings.Join(messages, "; "))
	}

	if len(gql.Data) == 0 || string(gql.Data) == "null" {
		return nil, fmt.Errorf("%w: %s returned no data", shared.ErrAPIRequest, operation)
	}

	return gql.Data, nil
}
