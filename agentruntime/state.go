// Package agentruntime drives a tool-using conversation with a chat
// model to completion: a small state machine (Pending, Running, Stopped)
// wraps a completion/tool-dispatch loop, with lifecycle hooks at every
// transition and a registry of local and remote tools resolved once at
// start-up.
package agentruntime

// State is the runtime's top-level lifecycle state.
type State int

const (
	// Pending is the state before Run's first completion call.
	Pending State = iota
	// Running covers both sub-phases: Completing and InvokingTools.
	Running
	// Stopped is terminal; StopReason explains why.
	Stopped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Phase distinguishes Running's two sub-states.
type Phase int

const (
	// PhaseNone applies outside Running.
	PhaseNone Phase = iota
	// PhaseCompleting is set while waiting on the model's completion.
	PhaseCompleting
	// PhaseInvokingTools is set while tool calls from the last
	// completion are being dispatched.
	PhaseInvokingTools
)

func (p Phase) String() string {
	switch p {
	case PhaseCompleting:
		return "completing"
	case PhaseInvokingTools:
		return "invoking_tools"
	default:
		return "none"
	}
}

// StopReason explains why a Runtime reached Stopped.
type StopReason string

const (
	// StopDone means the model produced a final message with no tool calls.
	StopDone StopReason = "done"
	// StopMaxIterations means the iteration limit was reached before
	// the model stopped requesting tools.
	StopMaxIterations StopReason = "max_iterations"
	// StopToolRequested means a call to the built-in stop tool ended the run.
	StopToolRequested StopReason = "tool_requested"
	// StopToolError means a tool call exhausted its retry budget (malformed
	// arguments the model never corrected) and the run ended without ever
	// reaching a successful tool execution for that call.
	StopToolError StopReason = "tool_error"
	// StopError means an unrecoverable error ended the run.
	StopError StopReason = "error"
	// StopCancelled means the run's context was cancelled.
	StopCancelled StopReason = "cancelled"
)
