package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/harun/warden/internal/metrics"
	"github.com/harun/warden/internal/observability"
	"github.com/harun/warden/internal/tracing"
	"github.com/harun/warden/pkg/coretools"
)

const tracerName = "warden/toolexecutor"

// Options configures an Executor. Every field is optional.
type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Audit   *observability.AuditLogger
}

// Executor resolves tool names against the catalog and runs them.
type Executor struct {
	catalog *coretools.Catalog
	schemas map[coretools.Kind]*gojsonschema.Schema
	logger  zerolog.Logger
	metrics *metrics.Metrics
	audit   *observability.AuditLogger
}

// New compiles the argument schema of every catalog tool.
func New(catalog *coretools.Catalog, opts Options) (*Executor, error) {
	if catalog == nil {
		return nil, fmt.Errorf("tool catalog is required")
	}

	schemas := make(map[coretools.Kind]*gojsonschema.Schema)
	for _, decl := range coretools.Declarations() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(decl.Schema(true)))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", decl.Name, err)
		}
		schemas[decl.Kind] = schema
	}

	return &Executor{
		catalog: catalog,
		schemas: schemas,
		logger:  opts.Logger.With().Str("component", "toolexecutor").Logger(),
		metrics: opts.Metrics,
		audit:   opts.Audit,
	}, nil
}

// Declarations returns the tool declarations to advertise to the model.
func (e *Executor) Declarations() []coretools.Declaration {
	return coretools.Declarations()
}

// Dispatch runs one request and always returns a Result. Unknown tools,
// malformed arguments, tool errors and panics all become failures.
func (e *Executor) Dispatch(ctx context.Context, req Request) (res Result) {
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, tracerName, "tool."+req.Name,
		attribute.String("tool.name", req.Name),
		attribute.String("tool.call_id", req.ID),
	)
	defer span.End()

	ctx = tracing.WithToolCallID(ctx, req.ID)
	logger := tracing.LoggerFromContext(ctx, e.logger)

	logger.Debug().
		Str("tool", req.Name).
		Interface("args", req.Arguments).
		Msg("Calling tool")

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("tool", req.Name).
				Interface("panic", r).
				Msg("Tool panicked")
			res = Failure(req.Name, req.ID, fmt.Sprintf("tool %s failed unexpectedly: %v", req.Name, r))
		}
		e.finish(ctx, span, logger, req, res, time.Since(start))
	}()

	return e.dispatch(ctx, req)
}

func (e *Executor) dispatch(ctx context.Context, req Request) Result {
	kind, ok := coretools.ParseKind(req.Name)
	if !ok {
		return Failure(req.Name, req.ID, "Unknown function: "+req.Name)
	}

	call := req.Clone()
	call.Arguments[coretools.WorkingDirectoryArg] = e.catalog.Root().Path()

	if err := e.validate(kind, call.Arguments); err != nil {
		return Failure(req.Name, req.ID, fmt.Sprintf("invalid arguments for %s: %v", req.Name, err))
	}

	out, err := e.invoke(ctx, kind, call.Arguments)
	if err != nil {
		return Failure(req.Name, req.ID, err.Error())
	}
	return Ok(req.Name, req.ID, out)
}

// invoke decodes the arguments into the typed params of kind and calls the
// matching catalog method.
func (e *Executor) invoke(ctx context.Context, kind coretools.Kind, args map[string]any) (string, error) {
	switch kind {
	case coretools.KindListDirectory:
		return call(ctx, kind, args, e.catalog.ListDirectory)
	case coretools.KindReadFile:
		return call(ctx, kind, args, e.catalog.ReadFile)
	case coretools.KindWriteFile:
		return call(ctx, kind, args, e.catalog.WriteFile)
	case coretools.KindRunScript:
		return call(ctx, kind, args, e.catalog.RunScript)
	default:
		return "", fmt.Errorf("no handler for tool %s", kind)
	}
}

func call[P any](ctx context.Context, kind coretools.Kind, args map[string]any, fn func(context.Context, P) (string, error)) (string, error) {
	var params P
	if err := decode(args, &params); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", kind, err)
	}
	return fn(ctx, params)
}

func decode(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(args)
}

// validate checks arguments against the JSON schema of the tool.
func (e *Executor) validate(kind coretools.Kind, args map[string]any) error {
	schema := e.schemas[kind]
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return errors.New(strings.Join(problems, "; "))
}

func (e *Executor) finish(ctx context.Context, span trace.Span, logger zerolog.Logger, req Request, res Result, duration time.Duration) {
	label := req.Name
	if _, known := coretools.ParseKind(req.Name); !known {
		label = "unknown"
	}

	if res.IsError() {
		span.SetStatus(codes.Error, res.Message)
		logger.Debug().
			Str("tool", req.Name).
			Dur("duration", duration).
			Str("error", res.Message).
			Msg("Tool call failed")
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Debug().
			Str("tool", req.Name).
			Dur("duration", duration).
			Int("output_len", len(res.Output)).
			Msg("Tool call completed")
	}

	e.metrics.RecordToolCall(label, duration, !res.IsError())
	e.audit.RecordToolCall(ctx, tracing.GetRunID(ctx), req.Name, !res.IsError(), map[string]any{
		"call_id":     req.ID,
		"arguments":   auditArguments(req.Arguments),
		"duration_ms": duration.Milliseconds(),
	})
}

// auditArguments drops bulky values so the audit trail stays one short line
// per call.
func auditArguments(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		if s, ok := value.(string); ok && len(s) > 256 {
			value = fmt.Sprintf("<%d bytes>", len(s))
		}
		out[key] = value
	}
	return out
}
