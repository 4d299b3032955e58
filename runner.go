package abatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Policy decides whether a classified error terminates the batch. It is fixed
// for the whole run.
type Policy struct {
	StopOnSDKError  bool
	StopOnToolError bool
}

// DefaultPolicy stops on SDK errors and continues past tool errors.
func DefaultPolicy() Policy {
	return Policy{StopOnSDKError: true}
}

const (
	defaultTitleLimit  = 48
	sessionCleanupWait = 10 * time.Second
)

// Runner executes prompts strictly in order, one fresh session per prompt.
// At most one session is open at any time and sessions are never reused.
type Runner struct {
	client SessionClient
	policy Policy

	out        io.Writer
	log        zerolog.Logger
	verbose    bool
	schema     string
	timeout    time.Duration
	titleLimit int
}

// NewRunner constructs a Runner over the given client and policy.
func NewRunner(client SessionClient, policy Policy, opts ...RunnerOption) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("runner requires a session client")
	}

	r := &Runner{
		client:     client,
		policy:     policy,
		out:        io.Discard,
		log:        zerolog.Nop(),
		titleLimit: defaultTitleLimit,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run drives the whole batch and returns the accumulated summary. Errors are
// classified and captured per prompt; they never escape to the caller.
func (r *Runner) Run(ctx context.Context, prompts []PromptEntry) RunSummary {
	var summary RunSummary

	cls := &Classifier{Verbose: r.verbose, Log: r.log}

	for _, entry := range prompts {
		outcome := r.runPrompt(ctx, cls, entry)
		r.printOutcome(entry, outcome)

		switch outcome.Kind {
		case ErrSDK:
			summary.SDKErrors++
			if r.policy.StopOnSDKError {
				return summary
			}
		case ErrTool:
			summary.ToolErrors++
			if r.policy.StopOnToolError {
				return summary
			}

			summary.Completed++
		default:
			summary.Completed++
		}
	}

	return summary
}

// runPrompt is the acquire/execute/release sequence for one prompt. The
// session is released on every exit path, and a release failure never alters
// the classification.
func (r *Runner) runPrompt(ctx context.Context, cls *Classifier, entry PromptEntry) (outcome RunOutcome) {
	log := r.log.With().
		Str("run_id", uuid.NewString()).
		Str("prompt", entry.Name).
		Logger()

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log.Debug().Msg("creating session")

	sessionID, err := r.client.CreateSession(ctx, promptTitle(entry.Content, r.titleLimit))

	defer func() {
		if sessionID == "" {
			return
		}

		// Cleanup uses its own context so an expired prompt deadline cannot
		// leak the session.
		dctx, cancel := context.WithTimeout(context.Background(), sessionCleanupWait)
		defer cancel()

		if derr := r.client.DeleteSession(dctx, sessionID); derr != nil {
			log.Debug().Err(derr).Str("session_id", sessionID).Msg("session delete failed")
		}
	}()

	outcome = cls.ClassifyCreate(sessionID, err)
	if outcome.Kind == ErrSDK {
		return outcome
	}

	log.Debug().Str("session_id", sessionID).Msg("submitting prompt")

	resp, err := r.client.SubmitPrompt(ctx, sessionID, entry.Content)

	outcome = cls.ClassifySubmit(resp, err)
	if outcome.Success && r.schema != "" {
		if verr := ValidateResult(r.schema, outcome.ResultText); verr != nil {
			outcome = RunOutcome{Kind: ErrTool, ResultText: verr.Error()}
		}
	}

	return outcome
}

// printOutcome echoes every outcome before the policy decision is applied, so
// the operator sees why execution stopped or continued.
func (r *Runner) printOutcome(entry PromptEntry, outcome RunOutcome) {
	switch outcome.Kind {
	case ErrSDK:
		fmt.Fprintf(r.out, "==> %s\n[SDK ERROR] %s\n", entry.Name, outcome.ResultText)
	case ErrTool:
		fmt.Fprintf(r.out, "==> %s\n[TOOL ERROR] %s\n", entry.Name, outcome.ResultText)
	default:
		fmt.Fprintf(r.out, "==> %s\n%s\n", entry.Name, outcome.ResultText)
	}
}

// promptTitle derives a session title from a truncated prompt prefix.
func promptTitle(content string, limit int) string {
	title := strings.Join(strings.Fields(content), " ")
	if limit <= 0 {
		limit = defaultTitleLimit
	}

	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}

	return string(runes[:limit]) + "..."
}
