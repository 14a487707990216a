// CLAUDE:SUMMARY E2E test harness — spawns veragraph subprocess on a free port with temp data dir and HTTP helpers
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// TestHarness manages a veragraph subprocess and provides HTTP helpers.
type TestHarness struct {
	BaseURL string
	DataDir string
	DBPath  string

	cmd    *exec.Cmd
	client *http.Client
	port   int
}

// NewHarness builds a config, starts veragraph serve, and waits for health.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	// Find free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	// Data directory (manual cleanup — t.TempDir() would delete files when
	// the first test finishes, breaking the shared harness across tests)
	dataDir, err := os.MkdirTemp("", "veragraph-e2e-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	dbPath := filepath.Join(dataDir, "graphs.db")

	config := fmt.Sprintf(`[server]
addr = ":%d"

[database]
path = %q

[auth]
jwt_secret = "e2e-test-secret-key-veragraph"
token_expiry_min = 60

[scoring]
temporal_half_life_days = 90
reputation_cache_ttl_min = 1
trace_recalcs = true

[instance]
id = "e2e-test"
name = "veragraph-e2e"
`, port, dbPath)

	configPath := filepath.Join(dataDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	// Locate binary using absolute path
	wd, _ := os.Getwd()
	binary, _ := filepath.Abs(filepath.Join(wd, "..", "veragraph"))
	if _, err := os.Stat(binary); os.IsNotExist(err) {
		t.Fatalf("binary not found at %s — run: CGO_ENABLED=0 go build -o veragraph .", binary)
	}

	parentDir, _ := filepath.Abs(filepath.Join(wd, ".."))
	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = parentDir

	if err := cmd.Start(); err != nil {
		t.Fatalf("starting veragraph: %v", err)
	}

	h := &TestHarness{
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		DataDir: dataDir,
		DBPath:  dbPath,
		cmd:     cmd,
		port:    port,
		client:  &http.Client{Timeout: 60 * time.Second},
	}

	// Health check
	deadline := time.Now().Add(15 * time.Second)
	backoff := 100 * time.Millisecond
	for time.Now().Before(deadline) {
		resp, err := h.client.Get(h.BaseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				t.Logf("veragraph ready on port %d", port)
				return h
			}
		}
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff = backoff * 3 / 2
		}
	}

	h.Stop()
	t.Fatalf("veragraph did not become ready within 15s on port %d", port)
	return nil
}

// Stop sends SIGTERM, waits 5s, then SIGKILL. Cleans up the data directory.
func (h *TestHarness) Stop() {
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}
	h.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		h.cmd.Process.Kill()
		<-done
	}

	if h.DataDir != "" {
		os.RemoveAll(h.DataDir)
	}
}

// Do executes an HTTP request and returns the response.
func (h *TestHarness) Do(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return h.client.Do(req)
}

// JSON executes a request and decodes the JSON response into dst.
func (h *TestHarness) JSON(method, path string, body interface{}, token string, dst interface{}) (*http.Response, error) {
	resp, err := h.Do(method, path, body, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("reading body: %w", err)
	}

	// Reset body so caller can inspect status
	resp.Body = io.NopCloser(bytes.NewReader(data))

	if dst != nil && len(data) > 0 {
		if err := json.Unmarshal(data, dst); err != nil {
			return resp, fmt.Errorf("decoding JSON (status %d, body: %s): %w", resp.StatusCode, truncate(string(data), 500), err)
		}
	}

	return resp, nil
}

// Register creates a new user and returns the token and user ID.
func (h *TestHarness) Register(t *testing.T, handle, password string) (token, userID string) {
	t.Helper()
	var result struct {
		User  map[string]interface{} `json:"user"`
		Token string                 `json:"token"`
	}
	resp, err := h.JSON("POST", "/api/register", map[string]string{
		"handle":   handle,
		"password": password,
	}, "", &result)
	if err != nil {
		t.Fatalf("register %s: %v", handle, err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", handle, resp.StatusCode)
	}
	return result.Token, result.User["id"].(string)
}

// Login authenticates a user and returns the token and user ID.
func (h *TestHarness) Login(t *testing.T, handle, password string) (token, userID string) {
	t.Helper()
	var result struct {
		User  map[string]interface{} `json:"user"`
		Token string                 `json:"token"`
	}
	resp, err := h.JSON("POST", "/api/login", map[string]string{
		"handle":   handle,
		"password": password,
	}, "", &result)
	if err != nil {
		t.Fatalf("login %s: %v", handle, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", handle, resp.StatusCode)
	}
	return result.Token, result.User["id"].(string)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// RequireStatus asserts the HTTP status code matches expected.
func RequireStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, truncate(string(body), 500))
	}
}

// CreateGraph is a helper that creates a draft graph and returns its ID.
func (h *TestHarness) CreateGraph(t *testing.T, token, name string, workflowID string) string {
	t.Helper()
	body := map[string]interface{}{"name": name}
	if workflowID != "" {
		body["workflow_id"] = workflowID
	}
	var result map[string]interface{}
	resp, err := h.JSON("POST", "/api/graphs", body, token, &result)
	if err != nil {
		t.Fatalf("create graph: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create graph: expected 201, got %d: %v", resp.StatusCode, result)
	}
	return result["id"].(string)
}

// CreateNode is a helper that adds a claim node and returns its ID.
func (h *TestHarness) CreateNode(t *testing.T, token, graphID, label string) string {
	t.Helper()
	var result map[string]interface{}
	resp, err := h.JSON("POST", "/api/graph/"+graphID+"/nodes", map[string]string{
		"label": label,
	}, token, &result)
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create node: expected 201, got %d: %v", resp.StatusCode, result)
	}
	return result["id"].(string)
}

// CreateSource registers an evidence source and returns its ID.
func (h *TestHarness) CreateSource(t *testing.T, token, kind string) string {
	t.Helper()
	var result map[string]interface{}
	resp, err := h.JSON("POST", "/api/sources", map[string]string{
		"kind": kind,
	}, token, &result)
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create source: expected 201, got %d: %v", resp.StatusCode, result)
	}
	return result["id"].(string)
}
