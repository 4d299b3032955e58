package abatch

import "fmt"

// RunSummary accumulates outcome counters over a whole batch. Completed
// includes prompts that finished with a tool error when tool errors are not
// configured to stop execution.
type RunSummary struct {
	Completed  int
	ToolErrors int
	SDKErrors  int
}

// ExitCode maps the final counters to a process exit code. SDK failures mean
// the automation itself is broken and outrank tool errors regardless of the
// relative counts.
func (s RunSummary) ExitCode() int {
	switch {
	case s.SDKErrors > 0:
		return 1
	case s.ToolErrors > 0:
		return 2
	default:
		return 0
	}
}

func (s RunSummary) String() string {
	return fmt.Sprintf("completed=%d tool_errors=%d sdk_errors=%d", s.Completed, s.ToolErrors, s.SDKErrors)
}
