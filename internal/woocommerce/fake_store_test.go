package woocommerce

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// recordedRequest captures what the fake store received.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Auth   string
	Body   []byte
}

// fakeResponse is a canned order-creation response.
type fakeResponse struct {
	status int
	body   string
}

// fakeStore is an httptest WooCommerce REST API double.
// Product lookups are answered from products; POST /orders pops orderResponses in order.
type fakeStore struct {
	t      *testing.T
	server *httptest.Server

	mu             sync.Mutex
	requests       []recordedRequest
	products       map[string]int
	lookupStatus   int
	orderResponses []fakeResponse
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{t: t, products: map[string]int{}}
	fs.server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeStore) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	fs.mu.Lock()
	fs.requests = append(fs.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	fs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/wp-json/wc/v3/products":
		fs.mu.Lock()
		status := fs.lookupStatus
		id, found := fs.products[r.URL.Query().Get("slug")]
		fs.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"code":"error","message":"lookup failed"}`)
			return
		}
		if !found {
			fmt.Fprint(w, `[]`)
			return
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{{"id": id, "slug": r.URL.Query().Get("slug")}})

	case r.Method == http.MethodPost && r.URL.Path == "/wp-json/wc/v3/orders":
		fs.mu.Lock()
		if len(fs.orderResponses) == 0 {
			fs.mu.Unlock()
			fs.t.Errorf("unexpected order POST")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := fs.orderResponses[0]
		fs.orderResponses = fs.orderResponses[1:]
		fs.mu.Unlock()

		w.WriteHeader(resp.status)
		fmt.Fprint(w, resp.body)

	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"rest_no_route"}`)
	}
}

// queueOrder appends an order-creation response.
func (fs *fakeStore) queueOrder(status int, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.orderResponses = append(fs.orderResponses, fakeResponse{status: status, body: body})
}

// recorded returns a copy of all requests received so far.
func (fs *fakeStore) recorded() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

// countPath returns how many requests hit the given path.
func (fs *fakeStore) countPath(path string) int {
	n := 0
	for _, r := range fs.recorded() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// newTestClient creates a client pointed at the fake store with full credentials.
func newTestClient(t *testing.T, fs *fakeStore) *Client {
	t.Helper()
	return newTestClientWithConfig(t, Config{
		SiteURL:        fs.server.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		SharedSecret:   "shared-secret",
	})
}

func newTestClientWithConfig(t *testing.T, cfg Config) *Client {
	t.Helper()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}
