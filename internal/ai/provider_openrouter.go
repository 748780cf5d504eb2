package ai

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	// DefaultOpenRouterModel drafts and grades rubrics unless configured otherwise.
	DefaultOpenRouterModel = "anthropic/claude-sonnet-4.5"
)

// NewOpenRouterProvider creates a provider for OpenRouter, which speaks the
// OpenAI chat completions API with extra attribution headers.
func NewOpenRouterProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(defaultOpenRouterBaseURL),
		WithProviderName("openrouter"),
		WithDefaultModel(DefaultOpenRouterModel),
		WithHeader("HTTP-Referer", "https://mathboard.app"),
		WithHeader("X-Title", "Mathboard"),
	}, opts...)
	return NewOpenAIProvider(apiKey, opts...)
}
