package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/harun/warden/pkg/coretools"
	"github.com/harun/warden/pkg/toolexecutor"
)

func sampleHistory() History {
	return NewHistory("what is in here?").Append(
		Turn{Role: RoleModel, Text: "Let me look.", Calls: []toolexecutor.Request{
			{ID: "c1", Name: "list_directory", Arguments: map[string]any{"directory": "."}},
			{ID: "c2", Name: "read_file", Arguments: map[string]any{"file_path": "../x"}},
		}},
		Turn{Role: RoleTool, Results: []toolexecutor.Result{
			toolexecutor.Ok("list_directory", "c1", "- a.txt: file_size=1 bytes, is_dir=False"),
			toolexecutor.Failure("read_file", "c2", `Cannot read "../x" as it is outside the permitted working directory`),
		}},
	)
}

func TestClassify(t *testing.T) {
	base := errors.New("boom")

	var clientErr *ClientError
	require.True(t, errors.As(classify("gemini", 429, base), &clientErr))
	assert.Equal(t, 429, clientErr.StatusCode)
	assert.ErrorIs(t, clientErr, base)

	var transportErr *TransportError
	assert.True(t, errors.As(classify("gemini", 503, base), &transportErr))
	assert.True(t, errors.As(classify("gemini", 0, base), &transportErr))

	wrapped := fmt.Errorf("request: %w", context.Canceled)
	assert.Equal(t, wrapped, classify("gemini", 0, wrapped))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeAnswered, outcomeOf(nil))
	assert.Equal(t, OutcomeMaxIterations, outcomeOf(ErrMaxIterations))
	assert.Equal(t, OutcomeClientError, outcomeOf(fmt.Errorf("x: %w", &ClientError{Err: errors.New("quota")})))
	assert.Equal(t, OutcomeProtocolError, outcomeOf(&ProtocolError{Err: ErrNoCandidates}))
	assert.Equal(t, OutcomeCanceled, outcomeOf(context.DeadlineExceeded))
	assert.Equal(t, OutcomeTransportError, outcomeOf(errors.New("eof")))
}

func TestErrorMessages(t *testing.T) {
	err := &ClientError{Provider: "gemini", StatusCode: 429, Err: errors.New("RESOURCE_EXHAUSTED")}
	assert.Equal(t, "gemini client error (status 429): RESOURCE_EXHAUSTED", err.Error())
	assert.Equal(t, "gemini client error: bad key", (&ClientError{Provider: "gemini", Err: errors.New("bad key")}).Error())
	assert.Equal(t, "openai protocol violation: model returned no candidates",
		(&ProtocolError{Provider: "openai", Err: ErrNoCandidates}).Error())
}

func TestNewProvider(t *testing.T) {
	t.Run("requires key", func(t *testing.T) {
		_, err := NewProvider(t.Context(), AuthProfile{Provider: ProviderGemini})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider(t.Context(), AuthProfile{Provider: "mystery", APIKey: "k"})
		assert.EqualError(t, err, "unsupported provider: mystery")
	})

	for _, name := range []string{ProviderGemini, ProviderAnthropic, ProviderOpenAI} {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(t.Context(), AuthProfile{Provider: name, APIKey: "test-key"})
			require.NoError(t, err)
			assert.Equal(t, name, p.Provider())
		})
	}
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", DefaultModel(ProviderGemini))
	assert.Equal(t, "gemini-2.5-flash", DefaultModel(""))
	assert.NotEmpty(t, DefaultModel(ProviderAnthropic))
	assert.NotEmpty(t, DefaultModel(ProviderOpenAI))
}

func TestGeminiContents(t *testing.T) {
	contents := geminiContents(sampleHistory())
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "what is in here?", contents[0].Parts[0].Text)

	model := contents[1]
	assert.Equal(t, genai.RoleModel, model.Role)
	require.Len(t, model.Parts, 3)
	assert.Equal(t, "Let me look.", model.Parts[0].Text)
	assert.Equal(t, "list_directory", model.Parts[1].FunctionCall.Name)
	assert.Equal(t, "../x", model.Parts[2].FunctionCall.Args["file_path"])

	tool := contents[2]
	assert.Equal(t, genai.RoleUser, tool.Role)
	require.Len(t, tool.Parts, 2)
	assert.Equal(t, "list_directory", tool.Parts[0].FunctionResponse.Name)
	assert.Equal(t, map[string]any{"result": "- a.txt: file_size=1 bytes, is_dir=False"}, tool.Parts[0].FunctionResponse.Response)
	assert.Equal(t,
		map[string]any{"result": `Error: Cannot read "../x" as it is outside the permitted working directory`},
		tool.Parts[1].FunctionResponse.Response)
}

func TestGeminiConfig(t *testing.T) {
	t.Run("limits and prompt", func(t *testing.T) {
		cfg := geminiConfig(GenerateRequest{
			SystemPrompt: "be brief",
			Temperature:  0.5,
			MaxTokens:    256,
			Tools:        coretools.Declarations(),
		})

		assert.Equal(t, int32(256), cfg.MaxOutputTokens)
		require.NotNil(t, cfg.Temperature)
		assert.Equal(t, float32(0.5), *cfg.Temperature)
		require.NotNil(t, cfg.SystemInstruction)
		assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
		require.Len(t, cfg.Tools, 1)
		assert.Len(t, cfg.Tools[0].FunctionDeclarations, 4)
	})

	t.Run("zero values leave provider defaults", func(t *testing.T) {
		cfg := geminiConfig(GenerateRequest{})

		assert.Zero(t, cfg.MaxOutputTokens)
		assert.Nil(t, cfg.Temperature)
		assert.Nil(t, cfg.SystemInstruction)
		assert.Empty(t, cfg.Tools)
	})
}

func TestGeminiDeclarations(t *testing.T) {
	decls := geminiDeclarations(coretools.Declarations())
	require.Len(t, decls, 4)

	byName := map[string]*genai.FunctionDeclaration{}
	for _, d := range decls {
		byName[d.Name] = d
	}

	run := byName["run_script"]
	require.NotNil(t, run)
	assert.Equal(t, genai.TypeObject, run.Parameters.Type)
	assert.Equal(t, []string{"file_path"}, run.Parameters.Required)
	assert.Equal(t, genai.TypeArray, run.Parameters.Properties["args"].Type)
	assert.Equal(t, genai.TypeString, run.Parameters.Properties["args"].Items.Type)

	list := byName["list_directory"]
	require.NotNil(t, list)
	assert.Empty(t, list.Parameters.Required)
	_, leaked := list.Parameters.Properties[coretools.WorkingDirectoryArg]
	assert.False(t, leaked)
}

func TestAnthropicMessages(t *testing.T) {
	messages := anthropicMessages(sampleHistory())
	require.Len(t, messages, 3)
	assert.Len(t, messages[1].Content, 3)
	assert.Len(t, messages[2].Content, 2, "all results of a batch share one message")
}

func TestAnthropicTools(t *testing.T) {
	tools := anthropicTools(coretools.Declarations())
	require.Len(t, tools, 4)
	require.NotNil(t, tools[1].OfTool)
	assert.Equal(t, "read_file", tools[1].OfTool.Name)
	assert.Equal(t, []string{"file_path"}, tools[1].OfTool.InputSchema.Required)
}

func TestOpenAIMessages(t *testing.T) {
	messages, err := openAIMessages("system text", sampleHistory())
	require.NoError(t, err)
	// system, user, assistant with calls, one tool message per result
	assert.Len(t, messages, 5)

	tools := openAITools(coretools.Declarations())
	require.Len(t, tools, 4)
	assert.Equal(t, "write_file", tools[2].Function.Name)
	assert.Equal(t, false, tools[2].Function.Parameters["additionalProperties"])
}
