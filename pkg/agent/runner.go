package agent

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/warden/internal/metrics"
	"github.com/harun/warden/internal/observability"
	"github.com/harun/warden/internal/tracing"
	"github.com/harun/warden/pkg/coretools"
	"github.com/harun/warden/pkg/session"
	"github.com/harun/warden/pkg/toolexecutor"
)

const tracerName = "warden/agent"

// DefaultMaxIterations bounds the number of model calls in one run.
const DefaultMaxIterations = 20

// Dispatcher executes tool requests. *toolexecutor.Executor implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req toolexecutor.Request) toolexecutor.Result
	Declarations() []coretools.Declaration
}

// TranscriptStore persists finished runs. *session.Store implements it.
type TranscriptStore interface {
	Save(ctx context.Context, t session.Transcript) error
}

// Runner drives the conversation between one provider and the tool catalog.
type Runner struct {
	provider      LLMProvider
	dispatcher    Dispatcher
	model         string
	systemPrompt  string
	maxIterations int
	temperature   float64
	maxTokens     int
	logger        zerolog.Logger
	metrics       *metrics.Metrics
	audit         *observability.AuditLogger
	transcripts   TranscriptStore
	observer      Observer
}

// Config holds runner configuration
type Config struct {
	Provider      LLMProvider
	Dispatcher    Dispatcher
	Model         string
	SystemPrompt  string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
	Audit         *observability.AuditLogger
	Transcripts   TranscriptStore
	Observer      Observer
}

// NewRunner creates a new agent runner
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("tool dispatcher is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations cannot be negative")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	maxIterations := cfg.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider.Provider())
	}

	return &Runner{
		provider:      cfg.Provider,
		dispatcher:    cfg.Dispatcher,
		model:         model,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: maxIterations,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		logger:        cfg.Logger.With().Str("component", "agent").Logger(),
		metrics:       cfg.Metrics,
		audit:         cfg.Audit,
		transcripts:   cfg.Transcripts,
		observer:      cfg.Observer,
	}, nil
}

// Model returns the model the runner calls.
func (r *Runner) Model() string {
	return r.model
}

// Run executes one conversation seeded with prompt. It returns when the
// model answers without requesting tools, or with an error when the model
// call fails, the context is canceled, or MaxIterations model calls went by
// without a final answer. The RunResult is populated in every case.
func (r *Runner) Run(ctx context.Context, prompt string) (RunResult, error) {
	ctx, runID := tracing.NewRunContext(ctx, tracing.GetRunID(ctx))
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())
	}
	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.run",
		attribute.String("run_id", runID),
		attribute.String("provider", r.provider.Provider()),
		attribute.String("model", r.model),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, r.logger)

	start := time.Now()
	result := RunResult{RunID: runID, State: StateRunning}

	err := r.loop(ctx, prompt, &result)
	result.Outcome = outcomeOf(err)
	if err != nil {
		result.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str("outcome", string(result.Outcome)).Msg("Agent run failed")
	} else {
		result.State = StateDone
		logger.Info().Int("iterations", result.Iterations).Msg("Agent run completed")
	}
	r.emit(Event{State: result.State, Iteration: result.Iterations, Err: err})

	span.SetAttributes(
		attribute.Int("iterations", result.Iterations),
		attribute.String("outcome", string(result.Outcome)),
	)
	r.metrics.RecordRun(r.provider.Provider(), string(result.Outcome), time.Since(start), result.Iterations)
	r.audit.RecordRun(ctx, runID, string(result.Outcome), map[string]any{
		"provider":      r.provider.Provider(),
		"model":         r.model,
		"iterations":    result.Iterations,
		"input_tokens":  result.Usage.InputTokens,
		"output_tokens": result.Usage.OutputTokens,
	})
	r.saveTranscript(ctx, prompt, start, result, err)

	return result, err
}

func (r *Runner) loop(ctx context.Context, prompt string, result *RunResult) error {
	logger := tracing.LoggerFromContext(ctx, r.logger)
	tools := r.dispatcher.Declarations()

	result.History = NewHistory(prompt)
	r.emit(Event{State: StateRunning})

	for {
		if result.Iterations >= r.maxIterations {
			return ErrMaxIterations
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Iterations++

		r.emit(Event{State: StateAwaitingModel, Iteration: result.Iterations})
		resp, err := r.generate(ctx, result.History, tools, result.Iterations)
		if err != nil {
			return err
		}
		result.Usage.Add(resp.Usage)
		if resp.Usage != nil {
			r.emit(Event{State: StateAwaitingModel, Iteration: result.Iterations, Usage: resp.Usage})
		}

		if len(resp.ToolCalls) == 0 {
			result.History = result.History.Append(Turn{Role: RoleModel, Text: resp.Text})
			result.Answer = resp.Text
			return nil
		}

		calls, err := r.prepareCalls(resp.ToolCalls)
		if err != nil {
			return err
		}
		result.History = result.History.Append(Turn{Role: RoleModel, Text: resp.Text, Calls: calls})

		r.emit(Event{State: StateExecutingTools, Iteration: result.Iterations})
		logger.Debug().Int("iteration", result.Iterations).Int("calls", len(calls)).Msg("Executing tool batch")

		results := make([]toolexecutor.Result, 0, len(calls))
		for i := range calls {
			if err := ctx.Err(); err != nil {
				return err
			}
			call := calls[i]
			r.emit(Event{State: StateExecutingTools, Iteration: result.Iterations, Call: &call})
			res := r.dispatcher.Dispatch(ctx, call)
			r.emit(Event{State: StateExecutingTools, Iteration: result.Iterations, Call: &call, Result: &res})
			results = append(results, res)
		}
		result.History = result.History.Append(Turn{Role: RoleTool, Results: results})

		r.emit(Event{State: StateRunning, Iteration: result.Iterations})
	}
}

func (r *Runner) generate(ctx context.Context, history History, tools []coretools.Declaration, iteration int) (*GenerateResponse, error) {
	provider := r.provider.Provider()
	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.generate",
		attribute.String("provider", provider),
		attribute.Int("iteration", iteration),
		attribute.Int("history_turns", history.Len()),
	)
	defer span.End()

	start := time.Now()
	resp, err := r.provider.Generate(ctx, GenerateRequest{
		Model:        r.model,
		SystemPrompt: r.systemPrompt,
		History:      history,
		Tools:        tools,
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
	})
	if err == nil && (resp == nil || resp.Candidates == 0) {
		err = &ProtocolError{Provider: provider, Err: ErrNoCandidates}
	}
	r.metrics.RecordModelCall(provider, time.Since(start), err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("model call %d failed: %w", iteration, err)
	}

	if resp.Usage != nil {
		r.metrics.RecordTokens(provider, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		span.SetAttributes(
			attribute.Int("tokens.input", resp.Usage.InputTokens),
			attribute.Int("tokens.output", resp.Usage.OutputTokens),
		)
	}
	span.SetAttributes(attribute.Int("tool_calls", len(resp.ToolCalls)))
	return resp, nil
}

// prepareCalls gives every call an id, so each result can be paired with
// its request even when the provider does not assign ids.
func (r *Runner) prepareCalls(requested []toolexecutor.Request) ([]toolexecutor.Request, error) {
	calls := make([]toolexecutor.Request, 0, len(requested))
	for _, call := range requested {
		if call.Name == "" {
			return nil, &ProtocolError{Provider: r.provider.Provider(), Err: ErrEmptyToolName}
		}
		call = call.Clone()
		if call.ID == "" {
			id, err := gonanoid.New()
			if err != nil {
				return nil, fmt.Errorf("failed to generate tool call id: %w", err)
			}
			call.ID = id
		}
		calls = append(calls, call)
	}
	return calls, nil
}

func (r *Runner) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}

func (r *Runner) saveTranscript(ctx context.Context, prompt string, start time.Time, result RunResult, runErr error) {
	if r.transcripts == nil {
		return
	}

	t := session.Transcript{
		ID:           result.RunID,
		Prompt:       prompt,
		Provider:     r.provider.Provider(),
		Model:        r.model,
		Outcome:      string(result.Outcome),
		Answer:       result.Answer,
		Iterations:   result.Iterations,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		StartedAt:    start,
		FinishedAt:   time.Now(),
		Messages:     TranscriptMessages(result.History),
	}
	if runErr != nil {
		t.Error = runErr.Error()
	}

	// The run's own context may already be canceled; the transcript of a
	// canceled run is still worth keeping.
	if err := r.transcripts.Save(context.WithoutCancel(ctx), t); err != nil {
		logger := tracing.LoggerFromContext(ctx, r.logger)
		logger.Warn().Err(err).Str("run_id", t.ID).Msg("Failed to save transcript")
	}
}

// TranscriptMessages converts a history into transcript messages.
func TranscriptMessages(h History) []session.Message {
	turns := h.Turns()
	out := make([]session.Message, 0, len(turns))
	for _, turn := range turns {
		msg := session.Message{Role: string(turn.Role), Content: turn.Text}
		for _, call := range turn.Calls {
			msg.ToolCalls = append(msg.ToolCalls, session.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
		}
		for _, res := range turn.Results {
			msg.ToolResults = append(msg.ToolResults, session.ToolResult{
				ID:      res.ID,
				Name:    res.Name,
				Result:  res.Text(),
				IsError: res.IsError(),
			})
		}
		out = append(out, msg)
	}
	return out
}
