// Package launcher 以子进程方式启动本地 AKTools 网关（python -m aktools），等待就绪并在退出时回收。
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stockDash/internal/trace"
)

// 就绪探测与停止
const (
	defaultReadyTimeout = 30 * time.Second
	probeTimeout        = 2 * time.Second
	probeInitial        = 200 * time.Millisecond
	probeMax            = 2 * time.Second
	stopGrace           = 5 * time.Second
)

var (
	ErrNotStarted = errors.New("launcher: gateway not started")
	ErrExited     = errors.New("launcher: gateway process exited")
)

type Launcher struct {
	Python       string
	Port         int
	BaseURL      string
	ReadyTimeout time.Duration
	Stdout       io.Writer
	Stderr       io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// Args 启动参数（不含解释器）。
func (l *Launcher) Args() []string {
	return []string{"-m", "aktools", "--port", strconv.Itoa(l.Port)}
}

// Start 启动子进程，不等待就绪。子进程生命周期不受 ctx 约束，由 Stop 回收。
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd != nil {
		return fmt.Errorf("launcher: already started (pid %d)", l.cmd.Process.Pid)
	}
	python := l.Python
	if python == "" {
		python = "python"
	}
	cmd := exec.Command(python, l.Args()...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launcher: start %s -m aktools: %w", python, err)
	}
	l.cmd = cmd
	l.done = make(chan struct{})
	go func() {
		err := cmd.Wait()
		l.mu.Lock()
		l.waitErr = err
		l.mu.Unlock()
		close(l.done)
	}()
	trace.Log(ctx, "launcher: aktools started pid=%d port=%d", cmd.Process.Pid, l.Port)
	return nil
}

// Done 子进程退出时关闭；未启动返回 nil。
func (l *Launcher) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// WaitReady 按指数退避探测 BaseURL，收到任意 HTTP 响应即就绪；子进程提前退出返回 ErrExited。
func (l *Launcher) WaitReady(ctx context.Context) error {
	done := l.Done()
	if done == nil {
		return ErrNotStarted
	}
	timeout := l.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: probeTimeout}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = probeInitial
	b.MaxInterval = probeMax
	b.MaxElapsedTime = 0
	attempt := 0
	op := func() error {
		attempt++
		select {
		case <-done:
			return backoff.Permanent(l.exitErr())
		default:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			trace.Debug(ctx, "launcher: probe %s attempt=%d err=%v", l.BaseURL, attempt, err)
			return err
		}
		_ = resp.Body.Close()
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("launcher: gateway not ready at %s: %w", l.BaseURL, err)
	}
	trace.Log(ctx, "launcher: aktools ready at %s (attempts=%d)", l.BaseURL, attempt)
	return nil
}

func (l *Launcher) exitErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waitErr != nil {
		return fmt.Errorf("%w: %v", ErrExited, l.waitErr)
	}
	return ErrExited
}

// Stop 先发 SIGTERM，stopGrace 内未退出则强杀。未启动或已退出时直接返回。
func (l *Launcher) Stop() error {
	l.mu.Lock()
	cmd, done := l.cmd, l.done
	l.mu.Unlock()
	if cmd == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	default:
	}
	ctx := context.Background()
	trace.Log(ctx, "launcher: terminating aktools pid=%d", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		trace.Warn(ctx, "launcher: SIGTERM failed, killing: %v", err)
		return l.kill(cmd, done)
	}
	select {
	case <-done:
		trace.Log(ctx, "launcher: aktools terminated")
		return nil
	case <-time.After(stopGrace):
		trace.Warn(ctx, "launcher: aktools did not exit within %s, killing", stopGrace)
		return l.kill(cmd, done)
	}
}

func (l *Launcher) kill(cmd *exec.Cmd, done <-chan struct{}) error {
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("launcher: kill: %w", err)
	}
	<-done
	return nil
}
