package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

type Config struct {
	APIKey      string  `split_words:"true" required:"true"`
	BaseURL     string  `split_words:"true"`
	Model       string  `split_words:"true" default:"gemini-2.0-flash"`
	MaxTokens   int     `split_words:"true" default:"2000"`
	Temperature float32 `split_words:"true" default:"0"`
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(c.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		clientCfg.HTTPOptions.BaseURL = base
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	temperature := c.Temperature
	maxTokens := c.MaxTokens
	m, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       strings.TrimSpace(c.Model),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model: %w", err)
	}
	return m, nil
}
