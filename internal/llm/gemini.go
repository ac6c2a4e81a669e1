package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient calls the Gemini Developer API.
type GeminiClient struct {
	model       string
	client      *genai.Client
	timeout     time.Duration
	temperature float32
}

// NewGeminiClient builds a client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, temperature float64) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	if temperature < 0 {
		temperature = defaultChatTemperature
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{
		model:       model,
		client:      gc,
		timeout:     timeout,
		temperature: float32(temperature),
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil gemini client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.client.Models.GenerateContent(reqCtx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", err
	}
	text := candidateText(res)
	if text == "" {
		return "", fmt.Errorf("gemini: no candidates returned")
	}
	return text, nil
}

// candidateText joins the text parts of the first candidate.
func candidateText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, p := range res.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
