package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

// fakeNacosServer is a minimal in-memory stand-in for the CRUD + probe
// endpoints the facade drives end to end.
type fakeNacosServer struct {
	mu      sync.Mutex
	configs map[string]string
}

func newFakeNacosServer() *httptest.Server {
	f := &fakeNacosServer{configs: make(map[string]string)}
	mux := http.NewServeMux()

	mux.HandleFunc("/nacos/v1/cs/configs", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		dataID := r.FormValue("dataId")
		group := r.FormValue("group")
		key := dataID + "|" + group

		switch r.Method {
		case http.MethodGet:
			f.mu.Lock()
			content, ok := f.configs[key]
			f.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(content))
		case http.MethodPost:
			f.mu.Lock()
			f.configs[key] = r.FormValue("content")
			f.mu.Unlock()
			w.Write([]byte("true"))
		case http.MethodDelete:
			f.mu.Lock()
			delete(f.configs, key)
			f.mu.Unlock()
			w.Write([]byte("true"))
		}
	})

	mux.HandleFunc("/nacos/v1/cs/configs/listener", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/nacos/v1/auth/users/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accessToken":"tok","tokenTtl":18000}`))
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	c, err := New(
		config.WithServerAddresses(server.URL),
		config.WithSnapshot(true, t.TempDir()),
		config.WithDefaultTimeout(2000),
		config.WithListenInterval(20),
		config.WithLongPollingTimeout(50),
	)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestClient_PublishThenGetRoundTrips(t *testing.T) {
	server := newFakeNacosServer()
	defer server.Close()
	c := newTestClient(t, server)
	ctx := context.Background()

	ok, err := c.PublishConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP", "key: value", "")
	require.NoError(t, err)
	assert.True(t, ok)

	content, found, err := c.GetConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "key: value", content)
}

func TestClient_GetMissingReturnsNotFound(t *testing.T) {
	server := newFakeNacosServer()
	defer server.Close()
	c := newTestClient(t, server)

	_, found, err := c.GetConfigAsync(context.Background(), "absent", "DEFAULT_GROUP")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_RemoveOverwritesSnapshotWithEmptyString(t *testing.T) {
	server := newFakeNacosServer()
	defer server.Close()
	c := newTestClient(t, server)
	ctx := context.Background()

	_, err := c.PublishConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP", "v1", "")
	require.NoError(t, err)

	ok, err := c.RemoveConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP")
	require.NoError(t, err)
	assert.True(t, ok)

	key, err := config.NewConfigKey("app.yaml", "DEFAULT_GROUP", "")
	require.NoError(t, err)
	snapshot, ok := c.store.ReadSnapshot(key)
	assert.True(t, ok)
	assert.True(t, snapshot.IsEmpty())

	_, found, err := c.GetConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_FailoverOverrideWinsOverRemote(t *testing.T) {
	server := newFakeNacosServer()
	defer server.Close()
	c := newTestClient(t, server)
	ctx := context.Background()

	_, err := c.PublishConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP", "remote-value", "")
	require.NoError(t, err)

	key, err := config.NewConfigKey("app.yaml", "DEFAULT_GROUP", "")
	require.NoError(t, err)
	// A failover override is placed directly on disk by an operator, not
	// through the client's own write path. The layout mirrors storage.Store's.
	failoverPath := filepath.Join(c.opts.SnapshotPath, "data", "config-data", key.TenantOrPublic(), key.Group, key.DataID)
	require.NoError(t, os.MkdirAll(filepath.Dir(failoverPath), 0o755))
	require.NoError(t, os.WriteFile(failoverPath, []byte("override-value"), 0o644))

	content, found, err := c.GetConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "override-value", content)
}

func TestClient_SubscribeAndUnsubscribe(t *testing.T) {
	server := newFakeNacosServer()
	defer server.Close()
	c := newTestClient(t, server)

	var fired atomic.Int32
	handle, err := c.Subscribe("app.yaml", "DEFAULT_GROUP", func(config.ConfigChangedEvent) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NotNil(t, handle)

	time.Sleep(50 * time.Millisecond)
	handle.Unsubscribe()
	handle.Unsubscribe() // idempotent
}
