package llm

import (
	"context"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// CompatibleClient talks to any OpenAI-compatible chat endpoint, such as a
// local model server or a third-party gateway.
type CompatibleClient struct {
	model       string
	client      *goopenai.Client
	timeout     time.Duration
	temperature float32
}

// NewCompatibleClient builds a client against baseURL. The API key may be
// empty for servers that do not authenticate.
func NewCompatibleClient(baseURL, apiKey, model string, timeout time.Duration, temperature float64) (*CompatibleClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	if model == "" {
		return nil, fmt.Errorf("model required")
	}
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	if temperature < 0 {
		temperature = defaultChatTemperature
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &CompatibleClient{
		model:       model,
		client:      goopenai.NewClientWithConfig(cfg),
		timeout:     timeout,
		temperature: float32(temperature),
	}, nil
}

func (c *CompatibleClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil compatible client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(reqCtx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("compatible: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
