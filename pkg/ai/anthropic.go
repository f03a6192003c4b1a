package ai

import (
	"context"
	"errors"
	"strings"
)

const (
	ProviderAnthropic = "anthropic"

	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// AnthropicProvider analyzes solutions with the Anthropic Messages API.
type AnthropicProvider struct {
	cfg   ProviderConfig
	instr instrumentation
}

// NewAnthropicProvider builds an Anthropic provider.
func NewAnthropicProvider(cfg ProviderConfig) *AnthropicProvider {
	cfg = cfg.withDefaults(defaultAnthropicModel, defaultAnthropicBaseURL)
	return &AnthropicProvider{
		cfg:   cfg,
		instr: newInstrumentation(ProviderAnthropic, cfg.Model, cfg.Logger),
	}
}

func (p *AnthropicProvider) Name() string  { return ProviderAnthropic }
func (p *AnthropicProvider) Model() string { return p.cfg.Model }

func (p *AnthropicProvider) Available() bool {
	return p.cfg.APIKey != "" && p.cfg.HTTPClient != nil
}

func (p *AnthropicProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:      "Anthropic Claude",
		Model:     p.cfg.Model,
		FreeTier:  false,
		RateLimit: "depende do plano",
		Speed:     "rápido",
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the prompt to Claude and returns the raw completion text.
func (p *AnthropicProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if !p.Available() {
		return "", missingCredentials(ProviderAnthropic)
	}

	return p.instr.run(ctx, func(ctx context.Context) (string, error) {
		request := anthropicRequest{
			Model:       p.cfg.Model,
			MaxTokens:   p.cfg.MaxTokens,
			Temperature: p.cfg.temperature(),
			System:      evaluatorSystemPrompt(),
			Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		}
		headers := map[string]string{
			"x-api-key":         p.cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}

		var response anthropicResponse
		if err := postJSON(ctx, p.cfg.HTTPClient, ProviderAnthropic, p.cfg.BaseURL+"/messages", headers, request, &response); err != nil {
			return "", err
		}
		if response.Error != nil {
			return "", newProviderError(ProviderAnthropic, KindUpstream, 0, errors.New(response.Error.Message))
		}

		builder := strings.Builder{}
		for _, block := range response.Content {
			if block.Type == "" || block.Type == "text" {
				builder.WriteString(block.Text)
			}
		}
		return builder.String(), nil
	})
}
