package ai

const (
	ProviderGroq = "groq"

	defaultGroqModel   = "llama-3.1-70b-versatile"
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
)

// NewGroqProvider builds a provider for Groq's OpenAI-compatible endpoint.
func NewGroqProvider(cfg ProviderConfig) *ChatCompletionProvider {
	cfg = cfg.withDefaults(defaultGroqModel, defaultGroqBaseURL)
	return newChatCompletionProvider(ProviderGroq, cfg, false, ProviderInfo{
		Name:      "Groq (Llama 3.1)",
		Model:     cfg.Model,
		FreeTier:  true,
		RateLimit: "14,400 tokens/minuto",
		Speed:     "ultra-rápido",
	})
}
