package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"launchpad/crypto"
)

func testAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	body := fmt.Sprintf("batch: b1\ndistributions:\n  - contribution_id: c-1\n    recipient: %s\n    amount: 5\n  - contribution_id: c-2\n    recipient: %s\n    amount: 7\n",
		testAddress(0x01), testAddress(0x02))
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestEnqueueDryRun(t *testing.T) {
	var out bytes.Buffer
	if err := runEnqueue([]string{"--manifest", writeManifest(t), "--dry-run"}, &out); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out.String(), "2 distributions totalling 12") {
		t.Fatalf("unexpected summary %q", out.String())
	}
}

func TestEnqueueSubmitsManifest(t *testing.T) {
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if r.URL.Path != "/v1/distributions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"total":12}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runEnqueue([]string{"--manifest", writeManifest(t), "--api", srv.URL, "--token", "tok"}, &out)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if gotAuth != "Bearer tok" || gotType != "application/yaml" {
		t.Fatalf("unexpected headers auth=%q type=%q", gotAuth, gotType)
	}
	if !strings.Contains(out.String(), `{"total":12}`) {
		t.Fatalf("response not echoed: %q", out.String())
	}
}

func TestEnqueueReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"duplicate"}`))
	}))
	defer srv.Close()

	err := runEnqueue([]string{"--manifest", writeManifest(t), "--api", srv.URL, "--token", "tok"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestTokenUsesEnvironmentSecret(t *testing.T) {
	t.Setenv(defaultSecretEnv, "0123456789abcdef0123456789abcdef")
	var out bytes.Buffer
	args := []string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "--subject", testAddress(0x01).String()}
	if err := runToken(args, &out); err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out.String()), ".") != 2 {
		t.Fatalf("expected a compact JWT, got %q", out.String())
	}
}

func TestKeygenPrintsAddress(t *testing.T) {
	var out bytes.Buffer
	if err := runKeygen(&out); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if !strings.Contains(out.String(), "address:") || !strings.Contains(out.String(), "private key:") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
