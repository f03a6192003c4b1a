package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderGemini = "gemini"

	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// GeminiProvider analyzes solutions with the Google Generative Language API.
type GeminiProvider struct {
	cfg   ProviderConfig
	instr instrumentation
}

// NewGeminiProvider builds a Gemini provider. A provider without API key is
// constructed but reports itself unavailable.
func NewGeminiProvider(cfg ProviderConfig) *GeminiProvider {
	cfg = cfg.withDefaults(defaultGeminiModel, defaultGeminiBaseURL)
	return &GeminiProvider{
		cfg:   cfg,
		instr: newInstrumentation(ProviderGemini, cfg.Model, cfg.Logger),
	}
}

func (p *GeminiProvider) Name() string  { return ProviderGemini }
func (p *GeminiProvider) Model() string { return p.cfg.Model }

// Available reports whether an API key was configured.
func (p *GeminiProvider) Available() bool {
	return p.cfg.APIKey != "" && p.cfg.HTTPClient != nil
}

// Info describes the provider for administrative listings.
func (p *GeminiProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:      "Google Gemini",
		Model:     p.cfg.Model,
		FreeTier:  true,
		RateLimit: "1500 req/dia",
		Speed:     "muito rápido",
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Analyze sends the prompt to Gemini and returns the raw completion text.
func (p *GeminiProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if !p.Available() {
		return "", missingCredentials(ProviderGemini)
	}

	return p.instr.run(ctx, func(ctx context.Context) (string, error) {
		safety := make([]geminiSafetySetting, 0, len(geminiSafetyCategories))
		for _, category := range geminiSafetyCategories {
			safety = append(safety, geminiSafetySetting{Category: category, Threshold: "BLOCK_NONE"})
		}

		request := geminiRequest{
			Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
			GenerationConfig: geminiGenerationConfig{
				Temperature:     p.cfg.temperature(),
				TopP:            DefaultTopP,
				TopK:            DefaultTopK,
				MaxOutputTokens: p.cfg.MaxTokens,
			},
			SafetySettings: safety,
		}

		url := fmt.Sprintf("%s/models/%s:generateContent", p.cfg.BaseURL, p.cfg.Model)
		headers := map[string]string{"x-goog-api-key": p.cfg.APIKey}

		var response geminiResponse
		if err := postJSON(ctx, p.cfg.HTTPClient, ProviderGemini, url, headers, request, &response); err != nil {
			return "", err
		}

		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			return "", newProviderError(ProviderGemini, KindUpstream, 0, fmt.Errorf("prompt blocked: %s", response.PromptFeedback.BlockReason))
		}
		if len(response.Candidates) == 0 {
			return "", newProviderError(ProviderGemini, KindEmptyResponse, 0, errors.New("no candidates returned"))
		}

		builder := strings.Builder{}
		for _, part := range response.Candidates[0].Content.Parts {
			builder.WriteString(part.Text)
		}
		return builder.String(), nil
	})
}
