package launcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// fakePython 写一个忽略参数、执行 body 的 shell 脚本充当解释器。
func fakePython(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script interpreter not available on windows")
	}
	p := filepath.Join(t.TempDir(), "python")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestArgs(t *testing.T) {
	l := &Launcher{Port: 8080}
	want := []string{"-m", "aktools", "--port", "8080"}
	got := l.Args()
	if len(got) != len(want) {
		t.Fatalf("args = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v", got)
		}
	}
}

func TestStartReadyStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	l := &Launcher{
		Python:       fakePython(t, "exec sleep 30"),
		Port:         18080,
		BaseURL:      srv.URL,
		ReadyTimeout: 5 * time.Second,
		Stdout:       io.Discard,
		Stderr:       io.Discard,
	}
	ctx := context.Background()
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if err := l.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("process still running after Stop")
	}
	if err := l.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestWaitReadyProcessExited(t *testing.T) {
	l := &Launcher{
		Python:       fakePython(t, "exit 3"),
		Port:         18081,
		BaseURL:      "http://127.0.0.1:1",
		ReadyTimeout: 5 * time.Second,
		Stdout:       io.Discard,
		Stderr:       io.Discard,
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.WaitReady(context.Background()); !errors.Is(err, ErrExited) {
		t.Fatalf("err = %v, want ErrExited", err)
	}
}

func TestWaitReadyNotStarted(t *testing.T) {
	if err := (&Launcher{}).WaitReady(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v", err)
	}
	if err := (&Launcher{}).Stop(); err != nil {
		t.Fatalf("Stop on idle launcher: %v", err)
	}
}
