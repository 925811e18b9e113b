//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// startHubServer serves a minimal hub API: a one-file tree listing on the
// main branch plus the artifact payload itself.
func startHubServer(t *testing.T, org, name, fileName string, payload []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	treePath := fmt.Sprintf("/api/models/%s/%s/tree/main", org, name)

	mux.HandleFunc(treePath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"path": fileName, "size": len(payload)},
		})
	})
	mux.HandleFunc(treePath+"/"+fileName, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"path":        fileName,
			"size":        len(payload),
			"downloadUrl": "http://" + r.Host + "/files/" + fileName,
		})
	})
	mux.HandleFunc("/files/"+fileName, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeTempConfig writes a config YAML pointing at the given hub URL with
// per-test models and state directories. Returns the config path and the
// models directory.
func writeTempConfig(t *testing.T, root, hubURL string, syncThreshold int64) (string, string) {
	t.Helper()

	modelsDir := filepath.Join(root, "models")
	stateDir := filepath.Join(root, "state")
	cfgPath := filepath.Join(root, "config.yaml")

	yamlContent := "hub:\n" +
		"  base_url: " + hubURL + "\n" +
		"settings:\n" +
		"  models_dir: " + strings.ReplaceAll(modelsDir, "\\", "\\\\") + "\n" +
		"  state_dir: " + strings.ReplaceAll(stateDir, "\\", "\\\\") + "\n" +
		fmt.Sprintf("  sync_threshold_bytes: %d\n", syncThreshold) +
		"  http_timeout: 5s\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))
	return cfgPath, modelsDir
}

// runCLI executes the root command with args and returns captured stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	_ = w.Close()
	os.Stdout = oldStdout
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String(), err
}
