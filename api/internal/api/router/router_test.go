package router_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/ak/api/internal/api/handlers"
	"github.com/irgordon/ak/api/internal/api/router"
	"github.com/irgordon/ak/api/internal/config"
	"github.com/irgordon/ak/api/internal/core/services"
	"github.com/irgordon/ak/api/internal/db"
	"github.com/irgordon/ak/api/internal/infrastructure/crypto"
	"github.com/irgordon/ak/api/internal/telemetry"
)

type testServer struct {
	srv *httptest.Server
	dir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		ConfigDir:      root,
		ProfilesDir:    filepath.Join(root, "profiles"),
		InstanceID:     "test-instance",
		Backend:        config.BackendNone,
		AllowedOrigins: []string{"*"},
	}
	require.NoError(t, os.MkdirAll(cfg.ProfilesDir, 0o700))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	enc := crypto.NewNoopEncryptor()
	store := db.NewFileProfileStore(cfg, enc, logger)
	require.NoError(t, store.EnsureDefaultProfile(context.Background()))

	hub := telemetry.NewHub()
	vault := services.NewVaultService(store, hub, logger)

	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		ProfileHandler: handlers.NewProfileHandler(vault),
		KeyHandler:     handlers.NewKeyHandler(vault),
		HealthHandler:  handlers.NewHealthHandler(cfg, enc),
		EventsHandler:  handlers.NewEventsHandler(hub, logger),
		Logger:         logger,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, dir: cfg.ProfilesDir}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["gpg_available"])
	assert.Equal(t, "none", body["backend"])
	assert.Equal(t, "test-instance", body["instance_id"])
	assert.NotEmpty(t, body["config_dir"])
}

func TestServices(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodGet, "/api/services", "")
	require.Equal(t, http.StatusOK, code)
	list := body["services"].([]any)
	require.Len(t, list, 10)
	first := list[0].(map[string]any)
	assert.Equal(t, "OpenAI", first["name"])
	assert.Equal(t, true, first["isBuiltIn"])
	assert.Equal(t, "^OPENAI_.*", first["keyPattern"])
}

func TestProfileLifecycle(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodPost, "/api/profiles", `{"name":"work"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Profile created successfully", body["message"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles", `{"name":"work"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Profile already exists", body["error"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing profile name", body["error"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles", `{"name":"../etc"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid profile name", body["error"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid JSON payload", body["error"])

	code, body = ts.do(t, http.MethodGet, "/api/profiles", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{
		map[string]any{"name": "default", "keyCount": float64(0), "isDefault": true},
		map[string]any{"name": "work", "keyCount": float64(0), "isDefault": false},
	}, body["profiles"])

	code, body = ts.do(t, http.MethodDelete, "/api/profiles/default", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot delete default profile", body["error"])

	code, body = ts.do(t, http.MethodDelete, "/api/profiles/work", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Profile deleted successfully", body["message"])
	assert.NoFileExists(t, filepath.Join(ts.dir, "work.profile"))
}

func TestKeyLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/profiles", `{"name":"work"}`)

	code, body := ts.do(t, http.MethodPost, "/api/profiles/work/keys", `{"name":"OPENAI_KEY","value":"abc123"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Key added successfully", body["message"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles/work/keys", `{"name":"ONLY_NAME"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing key name or value", body["error"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles/work/keys", `{"name":"A=B","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid key name", body["error"])

	code, body = ts.do(t, http.MethodGet, "/api/profiles/work/keys", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{map[string]any{
		"name": "OPENAI_KEY", "value": "abc123", "service": "OpenAI", "tested": false,
	}}, body["keys"])

	code, body = ts.do(t, http.MethodPut, "/api/profiles/work/keys/OPENAI_KEY", `{"value":"sk-proj-0123456789wxyz"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Key updated successfully", body["message"])

	code, body = ts.do(t, http.MethodPut, "/api/profiles/work/keys/OPENAI_KEY", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing key value", body["error"])

	code, body = ts.do(t, http.MethodGet, "/api/profiles/work/keys?masked=true", "")
	require.Equal(t, http.StatusOK, code)
	masked := body["keys"].([]any)[0].(map[string]any)
	assert.Equal(t, "sk-proj-***wxyz", masked["value"])
	assert.Equal(t, true, masked["masked"])

	// Empty secrets are legal values.
	code, body = ts.do(t, http.MethodPost, "/api/profiles/work/keys", `{"name":"EMPTY_KEY","value":""}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Key added successfully", body["message"])

	code, body = ts.do(t, http.MethodPut, "/api/profiles/work/keys/OPENAI_KEY", `{"value":""}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Key updated successfully", body["message"])

	code, body = ts.do(t, http.MethodGet, "/api/profiles/work/keys?masked=true", "")
	require.Equal(t, http.StatusOK, code)
	for _, k := range body["keys"].([]any) {
		assert.Equal(t, "(empty)", k.(map[string]any)["value"])
	}

	code, _ = ts.do(t, http.MethodDelete, "/api/profiles/work/keys/EMPTY_KEY", "")
	require.Equal(t, http.StatusOK, code)

	code, body = ts.do(t, http.MethodDelete, "/api/profiles/work/keys/NOPE", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Key not found", body["error"])

	code, body = ts.do(t, http.MethodDelete, "/api/profiles/work/keys/OPENAI_KEY", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Key deleted successfully", body["message"])
}

func TestExportImportReconcile(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.srv.Client().Post(ts.srv.URL+"/api/profiles/default/import", "text/plain",
		strings.NewReader("OPENAI_KEY=sk-1\nQUOTED=\"two words\"\n"))
	require.NoError(t, err)
	var imported map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&imported))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, imported["imported"])

	resp, err = ts.srv.Client().Get(ts.srv.URL + "/api/profiles/default/export")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "export OPENAI_KEY=\"sk-1\"\nexport QUOTED=\"two words\"\n", string(raw))

	code, body := ts.do(t, http.MethodGet, "/api/profiles/ghost/export", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Profile not found", body["error"])

	// Drift the name list, then reconcile it back.
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "default.profile"), []byte("STALE\n"), 0o600))
	code, body = ts.do(t, http.MethodPost, "/api/profiles/default/reconcile", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"OPENAI_KEY", "QUOTED"}, body["keys"])

	code, body = ts.do(t, http.MethodPost, "/api/profiles/default/import", "  ")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing import data", body["error"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.srv.URL+"/api/profiles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEventsStream(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.srv.URL+"/api/events?profile=default", nil)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	code, _ := ts.do(t, http.MethodPost, "/api/profiles/default/keys", `{"name":"GITHUB_TOKEN","value":"ghp"}`)
	require.Equal(t, http.StatusOK, code)

	var eventLine, dataLine string
	for eventLine == "" || dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}

	assert.Equal(t, "key_added", eventLine)
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(dataLine), &ev))
	assert.Equal(t, "default", ev["profile"])
	assert.Equal(t, "GITHUB_TOKEN", ev["key"])
	assert.NotContains(t, dataLine, "ghp\"")
}
