package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tabstash/tabstash/internal/host"
)

func newBridge(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(server.URL, time.Second)
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	values := map[string]json.RawMessage{}

	mux := http.NewServeMux()
	mux.HandleFunc("/storage/get", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		value, found := values[req.Key]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(storageGetResponse{Found: found, Value: value})
	})
	mux.HandleFunc("/storage/set", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		values[req.Key] = req.Value
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/storage/remove", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		delete(values, req.Key)
		w.WriteHeader(http.StatusOK)
	})

	storage := newBridge(t, mux).Storage()

	_, found, err := storage.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, storage.Set(ctx, "sessions", []byte(`{"s1":{"id":"s1"}}`)))
	value, found, err := storage.Get(ctx, "sessions")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"s1":{"id":"s1"}}`, string(value))

	require.NoError(t, storage.Remove(ctx, "sessions"))
	_, found, err = storage.Get(ctx, "sessions")
	require.NoError(t, err)
	require.False(t, found)
}

func TestBridgeErrorPayload(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/windows/get", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(bridgeError{Error: "window 42 not found"})
	})

	tabs := newBridge(t, mux).Tabs()
	_, err := tabs.Window(ctx, 42)
	require.Error(t, err)
	require.Contains(t, err.Error(), "window 42 not found")
}

func TestTabsQueryAndCreate(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/tabs/query", func(w http.ResponseWriter, r *http.Request) {
		var q host.TabQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		require.Equal(t, "https://a.test", q.URL)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]host.Tab{
			"tabs": {{ID: 3, WindowID: 1, URL: "https://a.test"}},
		})
	})
	mux.HandleFunc("/tabs/create", func(w http.ResponseWriter, r *http.Request) {
		var opts host.CreateTabOptions
		require.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(host.Tab{ID: 9, WindowID: 1, URL: opts.URL})
	})

	tabs := newBridge(t, mux).Tabs()

	found, err := tabs.Query(ctx, host.TabQuery{URL: "https://a.test"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, 3, found[0].ID)

	created, err := tabs.Create(ctx, host.CreateTabOptions{URL: "https://b.test"})
	require.NoError(t, err)
	require.Equal(t, 9, created.ID)
	require.Equal(t, "https://b.test", created.URL)
}
