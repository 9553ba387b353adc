package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/auth"
	"github.com/worksphere/connect-server/internal/config"
	"github.com/worksphere/connect-server/internal/core"
	"github.com/worksphere/connect-server/internal/store"
	"github.com/worksphere/connect-server/internal/store/sqlite"
)

// testEnv bundles the wired components behind one test server so tests can
// reach both the HTTP surface and the underlying stores.
type testEnv struct {
	ts          *httptest.Server
	store       store.Store
	authService *auth.Service
	registry    *core.Registry
	typing      *core.TypingStore
	broadcaster *core.Broadcaster
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	})

	registry := core.NewRegistry()
	typing := core.NewTypingStore(nil)
	broadcaster := core.NewBroadcaster(registry, testLogger())

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.StreamPollInterval = 20 * time.Millisecond

	server := NewServer(registry, typing, broadcaster, authService, st, &cfg, testLogger())

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:          ts,
		store:       st,
		authService: authService,
		registry:    registry,
		typing:      typing,
		broadcaster: broadcaster,
	}
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// registerUser registers a user through the API and returns their token and id.
func (e *testEnv) registerUser(t *testing.T, username string) (string, int64) {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/register", "", map[string]any{
		"username": username,
		"password": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var body AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	claims, err := e.authService.ValidateToken(body.Token)
	if err != nil {
		t.Fatalf("validate token for %s: %v", username, err)
	}
	return body.Token, claims.UserID
}

// request performs an HTTP request against the test server. A non-empty token
// is sent as a bearer credential.
func (e *testEnv) request(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
