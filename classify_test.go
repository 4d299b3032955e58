package abatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/rs/zerolog"
)

func TestClassifyCreateSuccess(t *testing.T) {
	cls := &Classifier{}

	outcome := cls.ClassifyCreate("ses_123", nil)
	if !outcome.Success || outcome.Kind != ErrNone {
		t.Fatalf("expected success, got %+v", outcome)
	}
}

func TestClassifyCreateEmptyID(t *testing.T) {
	cls := &Classifier{}

	outcome := cls.ClassifyCreate("", nil)
	if outcome.Success || outcome.Kind != ErrSDK {
		t.Fatalf("expected SDK error, got %+v", outcome)
	}
	if outcome.ResultText != "Session creation failed" {
		t.Fatalf("unexpected result text: %q", outcome.ResultText)
	}
}

func TestClassifyCreateFault(t *testing.T) {
	cls := &Classifier{}

	outcome := cls.ClassifyCreate("", errors.New("connection refused"))
	if outcome.Kind != ErrSDK {
		t.Fatalf("expected SDK error, got %+v", outcome)
	}
	if !strings.Contains(outcome.ResultText, "connection refused") {
		t.Fatalf("expected fault message, got %q", outcome.ResultText)
	}
}

func TestClassifySubmitToolError(t *testing.T) {
	cls := &Classifier{}

	resp := &PromptResponse{
		Status: 500,
		Error:  &APIError{Code: "tool_failed", Message: "go test exited 1"},
	}

	outcome := cls.ClassifySubmit(resp, nil)
	if outcome.Success || outcome.Kind != ErrTool {
		t.Fatalf("expected tool error, got %+v", outcome)
	}
	if !strings.Contains(outcome.ResultText, "tool_failed") || !strings.Contains(outcome.ResultText, "go test exited 1") {
		t.Fatalf("expected serialized payload, got %q", outcome.ResultText)
	}
}

func TestClassifySubmitFault(t *testing.T) {
	cls := &Classifier{}

	outcome := cls.ClassifySubmit(nil, errors.New("timeout"))
	if outcome.Kind != ErrSDK {
		t.Fatalf("expected SDK error, got %+v", outcome)
	}
}

func TestClassifySubmitNilResponse(t *testing.T) {
	cls := &Classifier{}

	outcome := cls.ClassifySubmit(nil, nil)
	if outcome.Kind != ErrSDK {
		t.Fatalf("expected SDK error for empty response, got %+v", outcome)
	}
}

func TestClassifySubmitTextProbeOrder(t *testing.T) {
	cls := &Classifier{}

	tests := []struct {
		body string
		want string
	}{
		{`{"text":"from text","content":"from content"}`, "from text"},
		{`{"content":"from content","message":"from message"}`, "from content"},
		{`{"message":"from message","result":"from result"}`, "from message"},
		{`{"result":"from result"}`, "from result"},
		{`{"text":"  ","content":"fallback wins"}`, "fallback wins"},
	}

	for _, tt := range tests {
		outcome := cls.ClassifySubmit(&PromptResponse{Status: 200, Body: json.RawMessage(tt.body)}, nil)
		if !outcome.Success {
			t.Fatalf("expected success for %s, got %+v", tt.body, outcome)
		}
		if outcome.ResultText != tt.want {
			t.Fatalf("body %s: expected %q, got %q", tt.body, tt.want, outcome.ResultText)
		}
	}
}

func TestClassifySubmitTextFallbackSerialization(t *testing.T) {
	cls := &Classifier{}

	body := `{"tokens": 42, "model": "sonnet"}`
	outcome := cls.ClassifySubmit(&PromptResponse{Status: 200, Body: json.RawMessage(body)}, nil)
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.ResultText != body {
		t.Fatalf("expected full body serialization, got %q", outcome.ResultText)
	}
}

func TestFlattenCausesDepthLimit(t *testing.T) {
	level4 := errors.New("four")
	level3 := fmt.Errorf("three: %w", level4)
	level2 := fmt.Errorf("two: %w", level3)
	level1 := fmt.Errorf("one: %w", level2)

	msgs := flattenCauses(level1, maxCauseDepth)
	if len(msgs) == 0 {
		t.Fatal("expected at least one message")
	}
	if len(msgs) > maxCauseDepth {
		t.Fatalf("expected at most %d messages, got %d", maxCauseDepth, len(msgs))
	}
}

func TestFlattenCausesSkipsRedundant(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	outer := fmt.Errorf("submit prompt: %w", inner)

	msgs := flattenCauses(outer, maxCauseDepth)
	if len(msgs) != 1 {
		t.Fatalf("expected inner message to be folded into the outer one, got %v", msgs)
	}
}

func TestFaultTextSurfacesSyscallDiagnostics(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4096}
	err := &net.OpError{
		Op:   "dial",
		Net:  "tcp",
		Addr: addr,
		Err:  os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}

	text := faultText(err)
	for _, want := range []string{"op=dial", "addr=127.0.0.1:4096", "syscall=connect", "errno="} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestFaultTextWithoutDiagnostics(t *testing.T) {
	text := faultText(errors.New("plain failure"))
	if text != "plain failure" {
		t.Fatalf("unexpected fault text: %q", text)
	}
}

func TestVerboseLoggingDoesNotAffectClassification(t *testing.T) {
	var buf bytes.Buffer
	cls := &Classifier{
		Verbose: true,
		Log:     zerolog.New(&buf).Level(zerolog.DebugLevel),
	}

	outcome := cls.ClassifySubmit(nil, fmt.Errorf("outer: %w", errors.New("inner")))
	if outcome.Kind != ErrSDK {
		t.Fatalf("expected SDK error, got %+v", outcome)
	}
	if !strings.Contains(buf.String(), "transport fault") {
		t.Fatalf("expected diagnostic log, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "inner") {
		t.Fatalf("expected immediate cause in log, got %q", buf.String())
	}
}

func TestErrorKindString(t *testing.T) {
	if ErrNone.String() != "none" || ErrTool.String() != "tool" || ErrSDK.String() != "sdk" {
		t.Fatal("unexpected kind strings")
	}
}
