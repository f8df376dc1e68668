package toolexecutor

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/warden/internal/metrics"
	"github.com/harun/warden/internal/observability"
	"github.com/harun/warden/internal/tracing"
	"github.com/harun/warden/pkg/coretools"
	"github.com/harun/warden/pkg/workspace"
)

type fixture struct {
	exec    *Executor
	root    workspace.Root
	metrics *metrics.Metrics
	audit   *bytes.Buffer
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root, err := workspace.NewRoot(t.TempDir(), workspace.Options{})
	require.NoError(t, err)

	catalog, err := coretools.NewCatalog(coretools.Options{
		Root:         root,
		Interpreters: map[string]string{".sh": "sh"},
	})
	require.NoError(t, err)

	f := &fixture{
		root:    root,
		metrics: metrics.NewMetrics(),
		audit:   &bytes.Buffer{},
		logs:    &bytes.Buffer{},
	}
	f.exec, err = New(catalog, Options{
		Logger:  zerolog.New(f.logs).Level(zerolog.DebugLevel),
		Metrics: f.metrics,
		Audit:   observability.NewAuditLogger(f.audit),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root.Path(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_RequiresCatalog(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestDispatch_UnknownFunction(t *testing.T) {
	f := newFixture(t)

	res := f.exec.Dispatch(context.Background(), Request{
		ID:        "c1",
		Name:      "delete_everything",
		Arguments: map[string]any{"path": "."},
	})

	assert.True(t, res.IsError())
	assert.Equal(t, Failure("delete_everything", "c1", "Unknown function: delete_everything"), res)
	assert.Equal(t, "Error: Unknown function: delete_everything", res.Text())

	entries, err := os.ReadDir(f.root.Path())
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ToolCallsTotal.WithLabelValues("unknown", "error")))
}

func TestDispatch_WorkingDirectoryOverride(t *testing.T) {
	f := newFixture(t)
	f.write(t, "inside.txt", "sandboxed")

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "inside.txt"), []byte("escaped"), 0o644))

	args := map[string]any{
		"file_path":         "inside.txt",
		"working_directory": outside,
	}
	res := f.exec.Dispatch(context.Background(), Request{Name: "read_file", Arguments: args})

	require.False(t, res.IsError(), res.Text())
	assert.Equal(t, "sandboxed", res.Output)
	assert.Equal(t, outside, args["working_directory"], "caller's map must not be mutated")
}

func TestDispatch_WriteThenRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.exec.Dispatch(ctx, Request{Name: "write_file", Arguments: map[string]any{
		"file_path": "pkg/hello.sh",
		"content":   "echo hello",
	}})
	require.False(t, res.IsError(), res.Text())
	assert.Equal(t, `Successfully wrote to "pkg/hello.sh" (10 characters written)`, res.Text())

	res = f.exec.Dispatch(ctx, Request{Name: "read_file", Arguments: map[string]any{"file_path": "pkg/hello.sh"}})
	assert.Equal(t, "echo hello", res.Text())

	res = f.exec.Dispatch(ctx, Request{Name: "list_directory", Arguments: map[string]any{}})
	assert.Equal(t, "- pkg: file_size=", res.Text()[:len("- pkg: file_size=")])

	res = f.exec.Dispatch(ctx, Request{Name: "run_script", Arguments: map[string]any{
		"file_path": "pkg/hello.sh",
		"args":      []any{"ignored"},
	}})
	assert.Equal(t, "STDOUT:\nhello", res.Text())
}

func TestDispatch_ToolErrorsBecomeFailures(t *testing.T) {
	f := newFixture(t)

	res := f.exec.Dispatch(context.Background(), Request{Name: "read_file", Arguments: map[string]any{"file_path": "../etc/passwd"}})
	assert.True(t, res.IsError())
	assert.Equal(t, `Error: Cannot read "../etc/passwd" as it is outside the permitted working directory`, res.Text())

	res = f.exec.Dispatch(context.Background(), Request{Name: "list_directory", Arguments: map[string]any{"directory": "nope"}})
	assert.Equal(t, `Error: "nope" is not a directory`, res.Text())
}

func TestDispatch_MalformedArguments(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"missing required", "read_file", map[string]any{}, "file_path is required"},
		{"wrong type", "write_file", map[string]any{"file_path": 3, "content": "x"}, "file_path"},
		{"unexpected key", "list_directory", map[string]any{"recursive": true}, "recursive"},
		{"non-string args", "run_script", map[string]any{"file_path": "a.sh", "args": []any{1}}, "args"},
		{"nil arguments", "write_file", nil, "content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.exec.Dispatch(context.Background(), Request{Name: tt.tool, Arguments: tt.args})
			require.True(t, res.IsError())
			assert.True(t, strings.HasPrefix(res.Message, "invalid arguments for "+tt.tool+": "), res.Message)
			assert.Contains(t, res.Message, tt.want)
		})
	}

	entries, err := os.ReadDir(f.root.Path())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatch_TraceRecord(t *testing.T) {
	f := newFixture(t)
	ctx := tracing.WithRunID(context.Background(), "run-42")

	f.exec.Dispatch(ctx, Request{ID: "call-7", Name: "list_directory", Arguments: map[string]any{"directory": "."}})

	first := strings.SplitN(f.logs.String(), "\n", 2)[0]
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &line))
	assert.Equal(t, "Calling tool", line["message"])
	assert.Equal(t, "list_directory", line["tool"])
	assert.Equal(t, map[string]any{"directory": "."}, line["args"])
	assert.Equal(t, "run-42", line["run_id"])
	assert.Equal(t, "call-7", line["tool_call_id"])

	var audit map[string]any
	require.NoError(t, json.Unmarshal(f.audit.Bytes(), &audit))
	assert.Equal(t, "execute:list_directory", audit["action"])
	assert.Equal(t, "run-42", audit["actor"])
	assert.Equal(t, "success", audit["status"])

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ToolCallsTotal.WithLabelValues("list_directory", "success")))
}

func TestAuditArguments_ElidesLargeValues(t *testing.T) {
	out := auditArguments(map[string]any{
		"file_path": "a.txt",
		"content":   strings.Repeat("x", 1000),
	})
	assert.Equal(t, "a.txt", out["file_path"])
	assert.Equal(t, "<1000 bytes>", out["content"])
}

func TestResult(t *testing.T) {
	ok := Ok("read_file", "1", "data")
	assert.False(t, ok.IsError())
	assert.Equal(t, map[string]any{"result": "data"}, ok.Envelope())

	bad := Failure("read_file", "1", "boom")
	assert.True(t, bad.IsError())
	assert.Equal(t, map[string]any{"result": "Error: boom"}, bad.Envelope())
}

func TestRequest_Clone(t *testing.T) {
	req := Request{Name: "x", Arguments: map[string]any{"a": 1}}
	clone := req.Clone()
	clone.Arguments["b"] = 2
	assert.NotContains(t, req.Arguments, "b")

	empty := Request{Name: "x"}.Clone()
	assert.NotNil(t, empty.Arguments)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	exec := &Executor{}

	res := exec.Dispatch(context.Background(), Request{ID: "p", Name: "read_file", Arguments: map[string]any{"file_path": "x"}})

	assert.True(t, res.IsError())
	assert.Equal(t, "p", res.ID)
	assert.Contains(t, res.Message, "tool read_file failed unexpectedly")
}
