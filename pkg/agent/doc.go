// Package agent runs the tool-calling loop between a language model and the
// sandboxed tool catalog.
//
// Invariants:
// - Runs are strictly sequential: tools in a batch are dispatched one at a
//   time in the order the model requested them, and no model call is issued
//   while tools are executing.
// - Every tool request in a model turn receives exactly one result before
//   the next model call.
// - History is append-only; a run never mutates a turn once recorded.
// - A run makes at most MaxIterations model calls.
//
// Usage:
//
//	provider, _ := agent.NewProvider(ctx, agent.AuthProfile{Provider: "gemini", APIKey: key})
//	runner, _ := agent.NewRunner(agent.Config{Provider: provider, Dispatcher: executor})
//	result, err := runner.Run(ctx, "summarize main.py")
//	_ = result
package agent
