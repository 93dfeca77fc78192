package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testConfig = `
baseline:
  - path: volume
    value: 5
settings:
  - path: volume
    value: 5
    liveness: live
    schema:
      type: number
      minimum: 0
      maximum: 10
  - path: contrast
    value: default
`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCheckCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prefs.yaml", testConfig)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"check", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out.String(), "2 settings, 1 baseline values") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCheckCommandRejectsInvalidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prefs.yaml", "settings: []\n")
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected invalid config to fail")
	}
}

func TestSchemaCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prefs.yaml", testConfig)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"schema", "-c", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	volume := doc["properties"].(map[string]any)["volume"].(map[string]any)
	if volume["maximum"] != float64(10) || volume["x-liveness"] != "live" {
		t.Fatalf("unexpected volume property %v", volume)
	}
}

func TestRunEngineFollowsProfile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "prefs.yaml", testConfig)
	profilePath := writeFile(t, dir, "profile.json",
		`{"userKey":"alice","settingGroups":[{"settings":[{"path":"volume","value":3}]}]}`)

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runEngine(ctx, zap.NewNop(), configPath, &runOptions{profilePath: profilePath}, out)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), `"path":"volume"`) {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("timed out waiting for mutation output, got %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(out.String(), `"kind":"settingChanged"`) {
		t.Fatalf("expected settingChanged envelope, got %q", out.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRunRequiresProfileFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prefs.yaml", testConfig)
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected missing --profile to fail")
	}
}
