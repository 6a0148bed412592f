package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abcd1234")
	if got := TraceID(ctx); got != "abcd1234" {
		t.Fatalf("TraceID = %q, want abcd1234", got)
	}
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("TraceID on empty ctx = %q", got)
	}
}

func TestNewTraceIDHex(t *testing.T) {
	id := NewTraceID()
	if len(id) != 8 {
		t.Fatalf("len(NewTraceID()) = %d, want 8", len(id))
	}
}

func TestLogCarriesTraceField(t *testing.T) {
	if err := Setup("debug", true); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() { _ = Setup("info", false) }()

	ctx := WithTraceID(context.Background(), "feedbeef")
	Log(ctx, "hello %s", "world")
	out := buf.String()
	if !strings.Contains(out, `"trace":"feedbeef"`) {
		t.Errorf("missing trace field: %s", out)
	}
	if !strings.Contains(out, "hello world") {
		t.Errorf("missing message: %s", out)
	}

	buf.Reset()
	Log(context.Background(), "no id")
	if !strings.Contains(buf.String(), `"trace":"-"`) {
		t.Errorf("expected placeholder trace id: %s", buf.String())
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if err := Setup("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
