package blackbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatalf("listen: %v", err) }
	addr := ln.Addr().String()
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil { t.Fatalf("split: %v", err) }
	cleanup := func(){ _ = ln.Close() }
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port, cleanup
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok { t.Fatal("runtime.Caller failed") }
	// this file: <root>/tests/blackbox/blackbox_test.go
	bbDir := filepath.Dir(thisFile)
	root := filepath.Dir(filepath.Dir(bbDir))
	return root
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	outDir := t.TempDir()
	binPath := filepath.Join(outDir, "evcore")
	cmd := exec.Command("go", "build", "-ldflags", "-X main.version=blackbox", "-o", binPath, "./cmd/evcore")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

// runEnv isolates the binary from the developer's environment and speeds up
// the demo producers.
func runEnv() []string {
	env := []string{"EVCORE_CONFIG=", "EVCORE_TICK_INTERVAL_MS=20", "EVCORE_LOG_FORMAT=json"}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "EVCORE_") { continue }
		env = append(env, kv)
	}
	return env
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:19464
}

func startServer(t *testing.T, bin string, port int, extra ...string) *serverProc {
	t.Helper()
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := append([]string{"run", "--addr", addr}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Env = runEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	// Wait for healthz
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK { break }
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	sp := &serverProc{cmd: cmd, base: base}
	t.Cleanup(func(){ _ = cmd.Process.Kill() })
	return sp
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do: %v", err) }
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

type stats struct {
	Running    bool   `json:"running"`
	Published  uint64 `json:"published"`
	Dispatched uint64 `json:"dispatched"`
}

func getStats(t *testing.T, base string) stats {
	t.Helper()
	resp, body := get(t, base+"/stats")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/stats %d %s", resp.StatusCode, string(body)) }
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("/stats content-type=%s", ct) }
	var s stats
	if err := json.Unmarshal(body, &s); err != nil { t.Fatalf("/stats json: %v body=%s", err, string(body)) }
	return s
}

func TestBlackbox_Version(t *testing.T) {
	bin := buildBinary(t)
	out, err := exec.Command(bin, "version").CombinedOutput()
	if err != nil { t.Fatalf("version: %v\n%s", err, out) }
	if got := strings.TrimSpace(string(out)); got != "evcore blackbox" { t.Fatalf("version output %q", got) }
}

func TestBlackbox_Selftest(t *testing.T) {
	bin := buildBinary(t)
	cmd := exec.Command(bin, "selftest")
	cmd.Env = runEnv()
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil { t.Fatalf("selftest exited with %v\n%s", err, stdout.String()) }
	if strings.Contains(stdout.String(), "FAIL") { t.Fatalf("selftest reported failures:\n%s", stdout.String()) }
	if !strings.Contains(stdout.String(), "6/6 passed") { t.Fatalf("unexpected selftest summary:\n%s", stdout.String()) }
}

func TestBlackbox_SelftestUnknownScenario(t *testing.T) {
	bin := buildBinary(t)
	cmd := exec.Command(bin, "selftest", "--only", "nope")
	cmd.Env = runEnv()
	out, err := cmd.CombinedOutput()
	if err == nil { t.Fatalf("expected non-zero exit, output=%s", out) }
	if !strings.Contains(string(out), `unknown scenario "nope"`) { t.Fatalf("unexpected output %s", out) }
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	// Reserve a free port, then release listener before starting the server
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, port)

	// /readyz once the loop runs
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ := get(t, sp.base+"/readyz")
		if resp.StatusCode == http.StatusOK { break }
		if time.Now().After(deadline) { t.Fatalf("/readyz did not become ready in time; last=%d", resp.StatusCode) }
		time.Sleep(25 * time.Millisecond)
	}

	// demo producers keep the dispatcher busy
	deadline = time.Now().Add(3 * time.Second)
	for {
		s := getStats(t, sp.base)
		if !s.Running { t.Fatalf("/stats running=false") }
		if s.Dispatched > 0 && s.Published >= s.Dispatched { break }
		if time.Now().After(deadline) { t.Fatalf("no events dispatched: %+v", s) }
		time.Sleep(50 * time.Millisecond)
	}

	// /errors
	resp, body := get(t, sp.base+"/errors")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/errors %d %s", resp.StatusCode, string(body)) }

	// /metrics
	resp, body = get(t, sp.base+"/metrics")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/metrics %d", resp.StatusCode) }
	for _, name := range []string{"evcore_dispatch_published_total", "evcore_dispatch_queue_capacity", "evcore_http_requests_total"} {
		if !bytes.Contains(body, []byte(name)) { t.Fatalf("/metrics missing %s", name) }
	}

	// /stats/stream emits newline-delimited snapshots
	resp, body = get(t, sp.base+"/stats/stream?interval_ms=100&count=2")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/stats/stream %d %s", resp.StatusCode, string(body)) }
	sc := bufio.NewScanner(bytes.NewReader(body))
	lines := 0
	for sc.Scan() {
		var s stats
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil { t.Fatalf("stream line %q: %v", sc.Text(), err) }
		lines++
	}
	if lines != 2 { t.Fatalf("expected 2 stream lines, got %d: %q", lines, string(body)) }

	// unknown route
	resp, _ = get(t, sp.base+"/nope")
	if resp.StatusCode != http.StatusNotFound { t.Fatalf("/nope expected 404, got %d", resp.StatusCode) }
}

func TestBlackbox_GracefulShutdown(t *testing.T) {
	bin := buildBinary(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, port)

	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil { t.Fatalf("signal: %v", err) }
	done := make(chan error, 1)
	go func(){ done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil { t.Fatalf("expected clean exit, got %v", err) }
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not exit after SIGTERM")
	}
}

func TestBlackbox_DurationFlagExits(t *testing.T) {
	bin := buildBinary(t)
	cmd := exec.Command(bin, "run", "--no-http", "--duration", "300ms")
	cmd.Env = runEnv()
	cmd.Stderr = io.Discard
	start := time.Now()
	if err := cmd.Run(); err != nil { t.Fatalf("run --duration: %v", err) }
	if el := time.Since(start); el > 10*time.Second { t.Fatalf("run took %s", el) }
}
