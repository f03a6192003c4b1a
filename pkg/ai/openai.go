package ai

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"

	defaultOpenAIModel = "gpt-4o-mini"
)

// ChatCompletionProvider talks to any OpenAI-compatible chat completion API.
// It backs both the OpenAI and the Groq providers.
type ChatCompletionProvider struct {
	name     string
	info     ProviderInfo
	jsonMode bool
	client   *openai.Client
	cfg      ProviderConfig
	instr    instrumentation
}

// NewOpenAIProvider builds a provider for the OpenAI chat completion API.
func NewOpenAIProvider(cfg ProviderConfig) *ChatCompletionProvider {
	cfg = cfg.withDefaults(defaultOpenAIModel, "")
	return newChatCompletionProvider(ProviderOpenAI, cfg, true, ProviderInfo{
		Name:      "OpenAI",
		Model:     cfg.Model,
		FreeTier:  false,
		RateLimit: "depende do plano",
		Speed:     "rápido",
	})
}

func newChatCompletionProvider(name string, cfg ProviderConfig, jsonMode bool, info ProviderInfo) *ChatCompletionProvider {
	provider := &ChatCompletionProvider{
		name:     name,
		info:     info,
		jsonMode: jsonMode,
		cfg:      cfg,
		instr:    newInstrumentation(name, cfg.Model, cfg.Logger),
	}

	if cfg.APIKey == "" {
		return provider
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = cfg.HTTPClient
	provider.client = openai.NewClientWithConfig(config)
	return provider
}

func (p *ChatCompletionProvider) Name() string  { return p.name }
func (p *ChatCompletionProvider) Model() string { return p.cfg.Model }

// Available reports whether the client was initialized with an API key.
func (p *ChatCompletionProvider) Available() bool {
	return p.cfg.APIKey != "" && p.client != nil
}

func (p *ChatCompletionProvider) Info() ProviderInfo {
	return p.info
}

// Analyze sends the prompt as a chat completion and returns the message content.
func (p *ChatCompletionProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if !p.Available() {
		return "", missingCredentials(p.name)
	}

	return p.instr.run(ctx, func(ctx context.Context) (string, error) {
		request := openai.ChatCompletionRequest{
			Model:       p.cfg.Model,
			MaxTokens:   p.cfg.MaxTokens,
			Temperature: chatTemperature(p.cfg.temperature()),
			TopP:        DefaultTopP,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: evaluatorSystemPrompt(),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		}
		if p.jsonMode {
			request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		}

		resp, err := p.client.CreateChatCompletion(ctx, request)
		if err != nil {
			return "", p.classify(err)
		}

		if len(resp.Choices) == 0 {
			return "", newProviderError(p.name, KindEmptyResponse, 0, errors.New("no choices returned"))
		}

		return resp.Choices[0].Message.Content, nil
	})
}

func (p *ChatCompletionProvider) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(p.name, kindForStatus(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, fmt.Errorf("%s", apiErr.Message))
	}

	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		return newProviderError(p.name, kindForStatus(requestErr.HTTPStatusCode), requestErr.HTTPStatusCode, requestErr.Err)
	}

	return newProviderError(p.name, KindTransport, 0, err)
}

// chatTemperature keeps an explicit zero on the wire; go-openai drops a zero
// temperature through omitempty.
func chatTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
