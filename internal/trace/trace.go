// Package trace 在 context 中传递 trace ID，日志经 zerolog 输出，每行带 trace=id 便于排查与 grep。
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

type ctxKey int

const traceIDKey ctxKey = 0

const consoleTimeFormat = "2006-01-02 15:04:05"

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat}).
		With().Timestamp().Logger()
)

// Setup 设置日志级别与输出格式；jsonOutput=false 时用人类可读的控制台格式。
func Setup(level string, jsonOutput bool) error {
	lvl := zerolog.InfoLevel
	if level != "" {
		l, err := zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("trace: parse log level %q: %w", level, err)
		}
		lvl = l
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat}
	if jsonOutput {
		w = os.Stderr
	}
	mu.Lock()
	logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
	return nil
}

// SetOutput 替换输出（测试用），保留当前级别。
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = logger.Output(w)
	mu.Unlock()
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

func NewTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "0"
	}
	return hex.EncodeToString(b)
}

// Logger 返回带 trace 字段的 zerolog.Logger，供需要结构化字段的调用方使用。
func Logger(ctx context.Context) zerolog.Logger {
	id := TraceID(ctx)
	if id == "" {
		id = "-"
	}
	mu.RLock()
	l := logger
	mu.RUnlock()
	return l.With().Str("trace", id).Logger()
}

// Log 打 info 日志
func Log(ctx context.Context, format string, args ...interface{}) {
	l := Logger(ctx)
	l.Info().Msgf(format, args...)
}

func Debug(ctx context.Context, format string, args ...interface{}) {
	l := Logger(ctx)
	l.Debug().Msgf(format, args...)
}

func Warn(ctx context.Context, format string, args ...interface{}) {
	l := Logger(ctx)
	l.Warn().Msgf(format, args...)
}

// Error 打 error 日志并附带 err 字段
func Error(ctx context.Context, err error, format string, args ...interface{}) {
	l := Logger(ctx)
	l.Error().Err(err).Msgf(format, args...)
}
