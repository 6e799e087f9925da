package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/starford/librarian/internal/llm"
)

func serveConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	cfg := NewDefaultConfig()
	cfg.App.LogLevel = slog.LevelError
	cfg.App.HTTP.Port = freePort(t)
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Maintenance.Schedule = ""

	for _, sub := range []string{cfg.Vault.CaptureDir, cfg.Vault.ReviewDir} {
		if err := os.MkdirAll(filepath.Join(cfg.Vault.Path, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, port int) {
	t.Helper()
	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("server did not become ready")
}

// A shutdown signal must stop every serve goroutine, not just the HTTP
// listener, or Run never returns.
func TestRun_ExitsOnShutdownSignal(t *testing.T) {
	cfg := serveConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, WithConfig(cfg), WithModel(llm.NewFake()))
	}()

	waitForServer(t, cfg.App.HTTP.Port)

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not exit after SIGTERM")
	}
}

func TestRun_ExitsOnContextCancel(t *testing.T) {
	cfg := serveConfig(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, WithConfig(cfg), WithModel(llm.NewFake()))
	}()

	waitForServer(t, cfg.App.HTTP.Port)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not exit after context cancel")
	}
}
