package llm

import (
	httputils "aiwallet/aiwallet/utils/http"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"fmt"
	"strings"
)

type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		apiKey:  apiKey,
		model:   model,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	defer logging.LogDuration(ctx, "gemini_complete")()

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	body := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.User}}}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: req.System}}},
		GenerationConfig: map[string]interface{}{
			"temperature":     req.temperature(),
			"maxOutputTokens": req.maxTokens(),
		},
	}

	var resp geminiResponse
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	if err := httputils.PostJSON(ctx, url, headers, body, &resp); err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
