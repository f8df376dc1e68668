package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harun/warden/pkg/agent"
	"github.com/harun/warden/pkg/toolexecutor"
)

// scriptedProvider replays responses in order and repeats the last one.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*agent.GenerateResponse
	err       error
	requests  []agent.GenerateRequest
}

func (p *scriptedProvider) Generate(_ context.Context, req agent.GenerateRequest) (*agent.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	i := len(p.requests) - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return p.responses[i], nil
}

func (p *scriptedProvider) Provider() string {
	return agent.ProviderGemini
}

func (p *scriptedProvider) factory() providerFactory {
	return func(context.Context, agent.AuthProfile) (agent.LLMProvider, error) {
		return p, nil
	}
}

func toolCall(name string, args map[string]any) *agent.GenerateResponse {
	return &agent.GenerateResponse{
		Candidates: 1,
		ToolCalls:  []toolexecutor.Request{{Name: name, Arguments: args}},
	}
}

func answer(text string) *agent.GenerateResponse {
	return &agent.GenerateResponse{Candidates: 1, Text: text}
}

// testEnv is a config file whose workspace and data directory live under a
// temp dir.
type testEnv struct {
	dir        string
	workdir    string
	dataDir    string
	configPath string
}

func newTestEnv(t *testing.T, extra map[string]any) testEnv {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "WARDEN_AGENT_PROVIDER"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	env := testEnv{
		dir:        dir,
		workdir:    filepath.Join(dir, "work"),
		dataDir:    filepath.Join(dir, "data"),
		configPath: filepath.Join(dir, "warden.json"),
	}

	settings := map[string]any{
		"ai":        map[string]any{"gemini_api_key": "test-key"},
		"data_dir":  env.dataDir,
		"workspace": map[string]any{"path": env.workdir, "create": true},
		"logging":   map[string]any{"level": "error", "pretty": false},
	}
	for k, v := range extra {
		settings[k] = v
	}

	data, err := json.Marshal(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env.configPath, data, 0o600))
	return env
}

type cmdResult struct {
	stdout string
	stderr string
	code   int
}

func runCmd(t *testing.T, factory providerFactory, stdin string, args ...string) cmdResult {
	t.Helper()

	cmd := newRootCmd(factory)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	code := execute(context.Background(), cmd)
	return cmdResult{stdout: out.String(), stderr: errOut.String(), code: code}
}
