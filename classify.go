package abatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ErrorKind partitions prompt outcomes by severity.
type ErrorKind int

const (
	// ErrNone means the prompt fully succeeded.
	ErrNone ErrorKind = iota
	// ErrTool means the remote run completed but a capability it invoked
	// reported failure. Non-fatal by default.
	ErrTool
	// ErrSDK means the transport or process layer itself failed. Fatal by
	// default.
	ErrSDK
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrTool:
		return "tool"
	case ErrSDK:
		return "sdk"
	default:
		return "unknown"
	}
}

// RunOutcome is the classified result of exactly one prompt execution.
type RunOutcome struct {
	Success    bool
	Kind       ErrorKind
	ResultText string
}

// Classifier turns raw session-client results and transport faults into
// RunOutcomes. Verbose diagnostics are an observability side effect and never
// influence the classification.
type Classifier struct {
	Verbose bool
	Log     zerolog.Logger
}

// maxCauseDepth bounds how far a fault's cause chain is unwrapped.
const maxCauseDepth = 3

// ClassifyCreate classifies the result of a session-creation call.
func (c *Classifier) ClassifyCreate(sessionID string, err error) RunOutcome {
	if err != nil {
		return c.fault(err)
	}

	if sessionID == "" {
		return RunOutcome{Kind: ErrSDK, ResultText: "Session creation failed"}
	}

	return RunOutcome{Success: true, Kind: ErrNone}
}

// ClassifySubmit classifies the result of a prompt submission. A transport
// fault is an SDK error; a server-reported error payload is a tool error,
// because a session exists and the remote execution itself failed.
func (c *Classifier) ClassifySubmit(resp *PromptResponse, err error) RunOutcome {
	if err != nil {
		return c.fault(err)
	}

	if resp == nil || len(resp.Body) == 0 && resp.Error == nil {
		return RunOutcome{Kind: ErrSDK, ResultText: ErrEmptyResponse.Error()}
	}

	if resp.Error != nil {
		return RunOutcome{Kind: ErrTool, ResultText: resp.Error.String()}
	}

	return RunOutcome{
		Success:    true,
		Kind:       ErrNone,
		ResultText: extractResultText(resp.Body),
	}
}

// resultFields are probed in priority order; first non-empty wins.
var resultFields = []string{"text", "content", "message", "result"}

func extractResultText(body json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, name := range resultFields {
			raw, ok := fields[name]
			if !ok {
				continue
			}

			var text string
			if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
				return text
			}
		}
	}

	return strings.TrimSpace(string(body))
}

func (c *Classifier) fault(err error) RunOutcome {
	if c.Verbose {
		evt := c.Log.Debug().
			Str("fault_type", fmt.Sprintf("%T", err)).
			Str("message", err.Error())
		if cause := errors.Unwrap(err); cause != nil {
			evt = evt.Str("cause", cause.Error())
		}

		evt.Msg("transport fault")
	}

	return RunOutcome{Kind: ErrSDK, ResultText: faultText(err)}
}

// faultText flattens a fault's cause chain (depth-limited) into one line and
// appends low-level diagnostics when the chain carries them.
func faultText(err error) string {
	var b strings.Builder

	for i, msg := range flattenCauses(err, maxCauseDepth) {
		if i > 0 {
			b.WriteString(" <- ")
		}

		b.WriteString(msg)
	}

	if diag := faultDiagnostics(err); diag != "" {
		b.WriteString(" (")
		b.WriteString(diag)
		b.WriteString(")")
	}

	return b.String()
}

// flattenCauses collects up to depth messages from the chain, skipping levels
// whose message is already contained in an outer one.
func flattenCauses(err error, depth int) []string {
	var msgs []string

	for err != nil && depth > 0 {
		msg := err.Error()

		redundant := false
		for _, seen := range msgs {
			if strings.Contains(seen, msg) {
				redundant = true
				break
			}
		}

		if !redundant && msg != "" {
			msgs = append(msgs, msg)
		}

		err = errors.Unwrap(err)
		depth--
	}

	return msgs
}

// faultDiagnostics surfaces network and syscall details when present. Absent
// fields are simply omitted.
func faultDiagnostics(err error) string {
	var parts []string

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op != "" {
			parts = append(parts, "op="+opErr.Op)
		}

		if opErr.Addr != nil {
			parts = append(parts, "addr="+opErr.Addr.String())
		}
	}

	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		if sysErr.Syscall != "" {
			parts = append(parts, "syscall="+sysErr.Syscall)
		}

		if sysErr.Err != nil {
			parts = append(parts, "errno="+sysErr.Err.Error())
		}
	}

	return strings.Join(parts, " ")
}
