package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSecrets is an in-memory credential.Store.
type memSecrets map[string]string

func (m memSecrets) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m memSecrets) Set(key, value string) error {
	m[key] = value
	return nil
}

var noSecrets = memSecrets{}

func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("api:\n  base_url: %s\n  request_timeout_sec: 5\npoll:\n  interval_sec: 1\n", baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// countingServer counts every request it receives.
func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRunUsage(t *testing.T) {
	srv, hits := countingServer(t)
	cfgPath := writeTestConfig(t, srv.URL)

	for _, args := range [][]string{
		{"/usr/bin/notifyagent"},
		{"/usr/bin/notifyagent", "key", "user", "pass"},
		{"/usr/bin/notifyagent", "key", "user", "pass", "accept", "extra"},
	} {
		var out bytes.Buffer
		code := run(context.Background(), args, strings.NewReader(""), &out, cfgPath, noSecrets)

		assert.Equal(t, 0, code)
		assert.Equal(t,
			"Usage /usr/bin/notifyagent <api_key> <username> <password> <mode>\n"+
				"      /usr/bin/notifyagent store <username> <apikey|password>\n",
			out.String())
	}
	assert.Zero(t, hits.Load(), "no traffic on bad usage")
}

func TestRunUnrecognizedMode(t *testing.T) {
	srv, hits := countingServer(t)
	cfgPath := writeTestConfig(t, srv.URL)

	var out bytes.Buffer
	code := run(context.Background(), []string{"notifyagent", "key", "user", "pass", "reject"}, strings.NewReader(""), &out, cfgPath, noSecrets)

	assert.Equal(t, 0, code)
	assert.Equal(t, "unrecognized mode reject, supported modes: accept, invite\n", out.String())
	assert.Zero(t, hits.Load())
}

func TestRunKeyringFailure(t *testing.T) {
	srv, hits := countingServer(t)
	cfgPath := writeTestConfig(t, srv.URL)

	var out bytes.Buffer
	code := run(context.Background(), []string{"notifyagent", "key", "user", "-", "accept"}, strings.NewReader(""), &out, cfgPath, noSecrets)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "resolving password")
	assert.Zero(t, hits.Load())
}

func TestRunBadBaseURL(t *testing.T) {
	cfgPath := writeTestConfig(t, "ftp://example.com")

	var out bytes.Buffer
	code := run(context.Background(), []string{"notifyagent", "key", "user", "pass", "accept"}, strings.NewReader(""), &out, cfgPath, noSecrets)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "creating api client")
}

func TestRunAcceptsFriendRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var accepted atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		cookie, _ := r.Cookie("apiKey")
		if user != "agent" || pass != "stored-secret" || cookie == nil || cookie.Value != "key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/1/auth/user/notifications":
			assert.Equal(t, "friendRequest", r.URL.Query().Get("type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"frq_1","senderUserId":"usr_a","senderUsername":"alice",` +
				`"type":"friendRequest","message":"","details":"{}","seen":false,"created_at":""}]`))
		case r.Method == http.MethodPut:
			accepted.Store(r.URL.Path)
			w.WriteHeader(http.StatusOK)
			cancel()
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	secrets := memSecrets{"agent-password": "stored-secret"}

	var out bytes.Buffer
	code := run(ctx, []string{"notifyagent", "key-1", "agent", "-", "accept"}, strings.NewReader(""), &out, writeTestConfig(t, srv.URL), secrets)

	assert.Equal(t, 0, code)
	assert.Equal(t, "/api/1/auth/user/notifications/frq_1/accept", accepted.Load())
	assert.Contains(t, out.String(), "accepting friend request from alice")
}

func TestRunStoreSecret(t *testing.T) {
	t.Run("Stores first line of stdin", func(t *testing.T) {
		secrets := memSecrets{}
		var out bytes.Buffer
		code := run(context.Background(), []string{"notifyagent", "store", "agent", "password"},
			strings.NewReader("hunter2\nignored\n"), &out, "", secrets)

		assert.Equal(t, 0, code)
		assert.Equal(t, "hunter2", secrets["agent-password"])
		assert.Contains(t, out.String(), "stored agent-password in keyring")
	})

	t.Run("Input without newline", func(t *testing.T) {
		secrets := memSecrets{}
		var out bytes.Buffer
		require.Equal(t, 0, run(context.Background(), []string{"notifyagent", "store", "agent", "apikey"},
			strings.NewReader("key-9"), &out, "", secrets))

		v, err := secrets.Get("agent-apikey")
		require.NoError(t, err)
		assert.Equal(t, "key-9", v)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		var out bytes.Buffer
		code := run(context.Background(), []string{"notifyagent", "store", "agent", "token"},
			strings.NewReader("x\n"), &out, "", memSecrets{})

		assert.Equal(t, 1, code)
		assert.Contains(t, out.String(), "unknown secret kind")
	})

	t.Run("Empty input", func(t *testing.T) {
		secrets := memSecrets{}
		var out bytes.Buffer
		code := run(context.Background(), []string{"notifyagent", "store", "agent", "password"},
			strings.NewReader("\n"), &out, "", secrets)

		assert.Equal(t, 1, code)
		assert.Empty(t, secrets)
	})
}

// wireCall is one request the invite test server received.
type wireCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func TestRunHandlesInviteRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		mu    gosync.Mutex
		calls []wireCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, wireCall{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		mu.Unlock()

		switch {
		case r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"not_1","senderUserId":"usr_a","senderUsername":"alice",` +
				`"type":"requestinvite","message":"let me in",` +
				`"details":"{\"world\":\"wrld_1\",\"instance\":\"12345\"}","seen":false,"created_at":""}]`))
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusOK)
			cancel()
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	code := run(ctx, []string{"notifyagent", "key-1", "agent", "pw", "invite"},
		strings.NewReader(""), &out, writeTestConfig(t, srv.URL), noSecrets)
	assert.Equal(t, 0, code)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 3)

	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "type=requestinvite", calls[0].Query)

	assert.Equal(t, http.MethodPut, calls[1].Method)
	assert.Equal(t, "/api/1/auth/user/notifications/not_1/hide", calls[1].Path)

	assert.Equal(t, http.MethodPost, calls[2].Method)
	assert.Equal(t, "/api/1/auth/user/usr_a/notification", calls[2].Path)

	var sent struct {
		Type    string `json:"type"`
		Details string `json:"details"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(calls[2].Body), &sent))
	assert.Equal(t, "invite", sent.Type)
	assert.Equal(t, `"wrld_1:12345"`, sent.Details)
	assert.Equal(t, "let me in", sent.Message)

	assert.Contains(t, out.String(), "handling invite request from alice")
}
