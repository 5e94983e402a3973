package testserver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Gateway is an in-memory content gateway serving GET /ipfs/{address}.
type Gateway struct {
	Server *httptest.Server

	mu       sync.Mutex
	docs     map[string][]byte
	statuses map[string]int
	hangs    map[string]bool
	hits     map[string]int
	release  chan struct{}
}

// NewGateway starts a fake gateway that closes with the test.
func NewGateway(t *testing.T) *Gateway {
	t.Helper()
	g := &Gateway{
		docs:     map[string][]byte{},
		statuses: map[string]int{},
		hangs:    map[string]bool{},
		hits:     map[string]int{},
		release:  make(chan struct{}),
	}
	r := chi.NewRouter()
	r.Get("/ipfs/{address}", g.serve)
	g.Server = httptest.NewServer(r)
	t.Cleanup(g.Server.Close)
	// Runs before Close so hung handlers return.
	t.Cleanup(func() { close(g.release) })
	return g
}

// URL returns the gateway base URL.
func (g *Gateway) URL() string { return g.Server.URL }

// Put stores raw bytes under address.
func (g *Gateway) Put(address string, body []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[address] = body
}

// PutJSON stores v under a content-derived address and returns it.
func (g *Gateway) PutJSON(t *testing.T, v any) string {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	sum := sha256.Sum256(body)
	address := "bafy" + hex.EncodeToString(sum[:16])
	g.Put(address, body)
	return address
}

// FailWith makes address answer with status. Zero clears it.
func (g *Gateway) FailWith(address string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if status == 0 {
		delete(g.statuses, address)
		return
	}
	g.statuses[address] = status
}

// Hang makes requests for address block until the client gives up.
func (g *Gateway) Hang(address string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hangs[address] = true
}

// Hits returns how many times address was requested.
func (g *Gateway) Hits(address string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hits[address]
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	g.mu.Lock()
	g.hits[address]++
	status, failing := g.statuses[address]
	hang := g.hangs[address]
	body, ok := g.docs[address]
	g.mu.Unlock()

	if hang {
		select {
		case <-r.Context().Done():
		case <-g.release:
		}
		return
	}

	switch {
	case failing:
		w.WriteHeader(status)
	case !ok:
		http.NotFound(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}
