package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"
)

// FireflyToken is the bearer token accepted by [FireflyServer].
const FireflyToken = "firefly-test-token"

// MonarchToken is the session token accepted by [NewMonarchServer].
const MonarchToken = "monarch-test-token"

type fakeResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

// FireflyServer is an in-memory Firefly III JSON:API server.
type FireflyServer struct {
	*httptest.Server

	mu        sync.Mutex
	seq       int
	resources map[string][]fakeResource
	requests  map[string]int

	// FailCreate, when set, is consulted before every create. A non-zero status rejects the
	// request with the returned message.
	FailCreate func(collection string, attrs map[string]any) (int, string)
	// FailList, when set, rejects listings of the named collections.
	FailList map[string]int
}

// NewFireflyServer starts a fake Firefly server closed on test cleanup.
func NewFireflyServer(t *testing.T) *FireflyServer {
	t.Helper()

	f := &FireflyServer{
		resources: make(map[string][]fakeResource),
		requests:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/about", f.about)
	mux.HandleFunc("GET /api/v1/{collection}", f.counted(f.list))
	mux.HandleFunc("POST /api/v1/{collection}", f.counted(f.create))
	mux.HandleFunc("GET /api/v1/{collection}/{id}", f.counted(f.get))
	mux.HandleFunc("PUT /api/v1/{collection}/{id}", f.counted(f.update))
	mux.HandleFunc("DELETE /api/v1/{collection}/{id}", f.counted(f.remove))

	f.Server = httptest.NewServer(f.authorize(mux))
	t.Cleanup(f.Close)
	return f
}

func (f *FireflyServer) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+FireflyToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FireflyServer) counted(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.Method+" "+r.PathValue("collection")]++
		f.mu.Unlock()
		next(w, r)
	}
}

// Seed stores a resource directly and returns its id.
func (f *FireflyServer) Seed(collection string, attrs map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(collection, attrs).ID
}

// insert must be called with mu held.
func (f *FireflyServer) insert(collection string, attrs map[string]any) fakeResource {
	f.seq++
	r := fakeResource{ID: strconv.Itoa(f.seq), Type: collection, Attributes: attrs}
	f.resources[collection] = append(f.resources[collection], r)
	return r
}

// Count returns the number of stored resources in a collection.
func (f *FireflyServer) Count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resources[collection])
}

// Attributes returns the stored attributes of every resource in a collection, in creation order.
func (f *FireflyServer) Attributes(collection string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	attrs := make([]map[string]any, 0, len(f.resources[collection]))
	for _, r := range f.resources[collection] {
		attrs = append(attrs, r.Attributes)
	}
	return attrs
}

// Requests returns how many requests were made with method against a collection.
// Requests on collection items are counted with the collection's name.
func (f *FireflyServer) Requests(method, collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+collection]
}

func (f *FireflyServer) about(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{"version": "6.1.0", "api_version": "6.1.0", "os": "Linux", "driver": "sqlite"},
	})
}

func (f *FireflyServer) list(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	if status, ok := f.FailList[collection]; ok {
		writeJSON(w, status, map[string]string{"message": "listing failed"})
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	f.mu.Lock()
	all := slices.Clone(f.resources[collection])
	f.mu.Unlock()

	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	totalPages := (len(all) + limit - 1) / limit

	writeJSON(w, http.StatusOK, map[string]any{
		"data": all[start:end],
		"meta": map[string]any{
			"pagination": map[string]int{
				"total":        len(all),
				"count":        end - start,
				"per_page":     limit,
				"current_page": page,
				"total_pages":  totalPages,
			},
		},
	})
}

func (f *FireflyServer) create(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	var attrs map[string]any
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	if f.FailCreate != nil {
		if status, message := f.FailCreate(collection, attrs); status != 0 {
			writeJSON(w, status, map[string]string{"message": message})
			return
		}
	}

	f.mu.Lock()
	created := f.insert(collection, attrs)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": created})
}

func (f *FireflyServer) find(collection, id string) (int, bool) {
	for i, r := range f.resources[collection] {
		if r.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (f *FireflyServer) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	collection := r.PathValue("collection")
	i, ok := f.find(collection, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Resource not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": f.resources[collection][i]})
}

func (f *FireflyServer) update(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]any
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	collection := r.PathValue("collection")
	i, ok := f.find(collection, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Resource not found"})
		return
	}
	f.resources[collection][i].Attributes = attrs
	writeJSON(w, http.StatusOK, map[string]any{"data": f.resources[collection][i]})
}

func (f *FireflyServer) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	collection := r.PathValue("collection")
	i, ok := f.find(collection, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Resource not found"})
		return
	}
	f.resources[collection] = slices.Delete(f.resources[collection], i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

// NewMonarchServer starts a fake Monarch GraphQL endpoint answering each operation name with the
// matching document. Unknown operations return a GraphQL error.
func NewMonarchServer(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+MonarchToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req struct {
			OperationName string `json:"operationName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		doc, ok := docs[req.OperationName]
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{
				"data":   nil,
				"errors": []map[string]string{{"message": fmt.Sprintf("unknown operation %s", req.OperationName)}},
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":%s}`, doc)
	}))

	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
