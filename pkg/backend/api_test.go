package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harnesskit/harnesskit/pkg/config"
	"github.com/harnesskit/harnesskit/pkg/logging"
)

func testFactory(t *testing.T, overrides map[string]interface{}) *Factory {
	t.Helper()
	t.Setenv("HARNESS_LOG_DIR", t.TempDir())

	log, _ := logging.NewLogger("backend-test")
	snap, err := config.NewResolver(config.WithDir(t.TempDir())).LoadOrDefaults("test")
	require.NoError(t, err)
	if overrides != nil {
		snap = snap.With(overrides)
	}
	return NewFactory(snap, log)
}

func newAPISession(t *testing.T, baseURL string, overrides map[string]interface{}) *APISession {
	t.Helper()
	f := testFactory(t, overrides)
	session, err := f.Create(context.Background(), KindAPI, Params{BaseURL: baseURL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session.(*APISession)
}

func TestAPISessionRetriesTransientGET(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	session := newAPISession(t, server.URL, nil)
	resp, err := session.Get(context.Background(), "/resource")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(3), hits.Load(), "expected two retries before success")
}

func TestAPISessionDoesNotRetryPOST(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	session := newAPISession(t, server.URL, nil)
	resp, err := session.Post(context.Background(), "/resource", map[string]string{"k": "v"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Equal(t, int32(1), hits.Load(), "POST must not be replayed")
}

func TestAPISessionDoesNotRetryNonTransientStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	session := newAPISession(t, server.URL, nil)
	resp, err := session.Get(context.Background(), "/missing")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, int32(1), hits.Load())
}

func TestAPISessionAppliesDefaultHeaders(t *testing.T) {
	var gotAccept, gotCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Team")
	}))
	defer server.Close()

	f := testFactory(t, nil)
	session, err := f.Create(context.Background(), KindAPI, Params{
		BaseURL: server.URL,
		Headers: map[string]string{"X-Team": "qa"},
	})
	require.NoError(t, err)
	defer session.Close()

	_, err = session.(*APISession).Get(context.Background(), "/")
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "qa", gotCustom)
}

func TestAPISessionBaseURLFromConfig(t *testing.T) {
	session := newAPISession(t, "", map[string]interface{}{
		"api_base_url": "https://cfg.example.com",
	})
	assert.Equal(t, "https://cfg.example.com", session.BaseURL())
}

func TestExpectStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	session := newAPISession(t, server.URL, nil)
	resp, err := session.Get(context.Background(), "/")
	require.NoError(t, err)

	assert.NoError(t, ExpectStatus(resp, http.StatusTeapot))

	err = ExpectStatus(resp, http.StatusOK)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "418")
	assert.Contains(t, err.Error(), "short and stout")
}

func TestJSONValue(t *testing.T) {
	data := map[string]interface{}{
		"user": map[string]interface{}{
			"profile": map[string]interface{}{"name": "ada"},
			"id":      float64(7),
		},
	}

	assert.Equal(t, "ada", JSONValue(data, "user.profile.name", nil))
	assert.Equal(t, float64(7), JSONValue(data, "user.id", nil))
	assert.Equal(t, "none", JSONValue(data, "user.profile.email", "none"))
	assert.Equal(t, "none", JSONValue(data, "user.id.extra", "none"))
}

func TestDecodeJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "ada", "id": 7}`))
	}))
	defer server.Close()

	session := newAPISession(t, server.URL, nil)
	resp, err := session.Get(context.Background(), "/")
	require.NoError(t, err)

	var out struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	}
	require.NoError(t, DecodeJSON(resp, &out))
	assert.Equal(t, "ada", out.Name)
	assert.Equal(t, 7, out.ID)
}
