package agent

import (
	"slices"

	"github.com/harun/warden/pkg/toolexecutor"
)

// Role tags a turn in the conversation.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Turn is one entry of the conversation. User and model turns carry text;
// a model turn may also carry the tool calls it requested, and the tool turn
// that follows carries exactly one result per call.
type Turn struct {
	Role    Role                   `json:"role"`
	Text    string                 `json:"text,omitempty"`
	Calls   []toolexecutor.Request `json:"calls,omitempty"`
	Results []toolexecutor.Result  `json:"results,omitempty"`
}

// History is an immutable, ordered list of turns. Append returns a new
// History and leaves the receiver unchanged.
type History struct {
	turns []Turn
}

// NewHistory starts a conversation with a single user turn.
func NewHistory(prompt string) History {
	return History{}.Append(Turn{Role: RoleUser, Text: prompt})
}

// Append returns a copy of h with turns added at the end.
func (h History) Append(turns ...Turn) History {
	out := make([]Turn, 0, len(h.turns)+len(turns))
	out = append(out, h.turns...)
	for _, t := range turns {
		t.Calls = slices.Clone(t.Calls)
		t.Results = slices.Clone(t.Results)
		out = append(out, t)
	}
	return History{turns: out}
}

// Turns returns a copy of the turns.
func (h History) Turns() []Turn {
	return slices.Clone(h.turns)
}

// Len returns the number of turns.
func (h History) Len() int {
	return len(h.turns)
}

// Last returns the most recent turn.
func (h History) Last() (Turn, bool) {
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// State is a step of the run state machine.
type State int

const (
	StateRunning State = iota
	StateAwaitingModel
	StateExecutingTools
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to an Observer. State transitions arrive with Call and
// Result nil. While tools execute, each call is reported twice: once before
// dispatch with Call set, once after with Result set too.
type Event struct {
	State     State
	Iteration int
	Call      *toolexecutor.Request
	Result    *toolexecutor.Result
	Usage     *TokenUsage
	Err       error
}

// Observer receives run events synchronously.
type Observer func(Event)

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates u into t.
func (t *TokenUsage) Add(u *TokenUsage) {
	if u == nil {
		return
	}
	t.InputTokens += u.InputTokens
	t.OutputTokens += u.OutputTokens
}

// Outcome labels how a run ended.
type Outcome string

const (
	OutcomeAnswered       Outcome = "answered"
	OutcomeMaxIterations  Outcome = "max_iterations"
	OutcomeClientError    Outcome = "client_error"
	OutcomeProtocolError  Outcome = "protocol_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeCanceled       Outcome = "canceled"
)

// RunResult is what a run produced. It is filled in on failure too, with the
// history recorded up to the point the run stopped.
type RunResult struct {
	RunID      string
	Answer     string
	History    History
	Iterations int
	Usage      TokenUsage
	State      State
	Outcome    Outcome
}

// AuthProfile selects a provider and its credentials.
type AuthProfile struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}
