package toolexecutor

import "maps"

// Request is one tool invocation requested by the model.
type Request struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Result is the outcome of one Request: either Ok with the tool's text or a
// failure with a message. Construct it with Ok or Failure.
type Result struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Output  string `json:"output,omitempty"`
	Message string `json:"error,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

// Ok returns a successful result.
func Ok(name, id, output string) Result {
	return Result{ID: id, Name: name, Output: output}
}

// Failure returns a failed result.
func Failure(name, id, message string) Result {
	return Result{ID: id, Name: name, Message: message, Failed: true}
}

// IsError reports whether the result is a failure.
func (r Result) IsError() bool {
	return r.Failed
}

// Text is what the model sees: the output, or "Error: <message>".
func (r Result) Text() string {
	if r.Failed {
		return "Error: " + r.Message
	}
	return r.Output
}

// Envelope is the function-response payload sent back to the model. Errors
// travel in the same "result" field as successes.
func (r Result) Envelope() map[string]any {
	return map[string]any{"result": r.Text()}
}

// Clone returns a copy of the request with its own argument map.
func (r Request) Clone() Request {
	out := r
	out.Arguments = maps.Clone(r.Arguments)
	if out.Arguments == nil {
		out.Arguments = map[string]any{}
	}
	return out
}
