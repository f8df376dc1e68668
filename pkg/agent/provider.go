package agent

import (
	"context"
	"fmt"

	"github.com/harun/warden/pkg/coretools"
	"github.com/harun/warden/pkg/toolexecutor"
)

// Provider names accepted by NewProvider.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// LLMProvider is the boundary to a model service. Implementations are
// stateless: every call carries the full history.
type LLMProvider interface {
	// Generate asks the model for the next turn.
	Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error)

	// Provider returns the provider name
	Provider() string
}

// GenerateRequest contains the request parameters for one model call.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	History      History
	Tools        []coretools.Declaration
	Temperature  float64
	MaxTokens    int
}

// GenerateResponse is either final text (no ToolCalls) or a batch of tool
// calls, possibly with accompanying text.
type GenerateResponse struct {
	Candidates int
	Text       string
	ToolCalls  []toolexecutor.Request
	Usage      *TokenUsage
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderOpenAI:
		return "gpt-4o"
	default:
		return "gemini-2.5-flash"
	}
}

// NewProvider creates an LLM provider from an auth profile.
func NewProvider(ctx context.Context, profile AuthProfile) (LLMProvider, error) {
	if profile.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %s", profile.Provider)
	}

	switch profile.Provider {
	case ProviderGemini, "":
		return NewGeminiProvider(ctx, profile.APIKey)
	case ProviderAnthropic:
		return NewAnthropicProvider(profile.APIKey), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(profile.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}
