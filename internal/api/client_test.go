package api

import (
	"context"
	"io"
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

	"github.com/twinlayout/sceneedit/pkg/core"
)

func exportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plant.json.gz")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.NotNil(t, c.httpClient)
	assert.Zero(t, c.retries)
}

func TestHealthcheck(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, HealthcheckPath, r.URL.Path)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, New(server.URL, "k").Healthcheck(context.Background()))
	assert.Equal(t, "Bearer k", auth)
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "maintenance", se.Body)
	assert.True(t, se.Temporary())
}

func TestHealthcheck_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(server.URL, "").Healthcheck(ctx), context.Canceled)
}

func TestUpload(t *testing.T) {
	received := map[string]string{}
	var content []byte
	var key string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		key = r.Header.Get("Idempotency-Key")

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "sceneId", "sceneName", "floorCount", "entityCount", "tag"} {
			received[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)
	}))
	defer server.Close()

	meta := core.UploadMetadata{SceneID: "plant", SceneName: "Plant One", FloorCount: 2, EntityCount: 41, Tag: "review"}
	require.NoError(t, New(server.URL, "mysecret").Upload(context.Background(), exportFile(t, "test content"), meta))

	assert.Equal(t, map[string]string{
		"secret":      "mysecret",
		"filename":    "plant.json.gz",
		"sceneId":     "plant",
		"sceneName":   "Plant One",
		"floorCount":  "2",
		"entityCount": "41",
		"tag":         "review",
	}, received)
	assert.Equal(t, "test content", string(content))
	assert.Len(t, key, 36)
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpload_RejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New(server.URL, "wrong-secret", WithRetries(3, time.Millisecond))
	err := c.Upload(context.Background(), exportFile(t, "content"), core.UploadMetadata{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpload_RetriesWithSameKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if len(keys) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	c := New(server.URL, "k", WithRetries(2, time.Millisecond))
	require.NoError(t, c.Upload(context.Background(), exportFile(t, "content"), core.UploadMetadata{SceneID: "plant"}))

	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])
}
