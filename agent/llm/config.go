package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	geminix "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/openrouter"
)

type Provider string

const defaultAzureAPIVersion = "2024-06-01"

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderAzure      Provider = "azure"
	ProviderGemini     Provider = "gemini"
)

type Config struct {
	Provider           Provider      `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	APIVersion         string        `envconfig:"API_VERSION" split_words:"true" default:"2024-06-01"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	CallTimeout        time.Duration `envconfig:"CALL_TIMEOUT" split_words:"true" default:"45s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel        string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	ITModel            string  `envconfig:"IT_MODEL" split_words:"true"`
	FinanceModel       string  `envconfig:"FINANCE_MODEL" split_words:"true"`
	RouterTemperature  float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	ITTemperature      float32 `envconfig:"IT_TEMPERATURE" split_words:"true" default:"-1"`
	FinanceTemperature float32 `envconfig:"FINANCE_TEMPERATURE" split_words:"true" default:"-1"`
}

// Builder creates the chat model for one agent.
type Builder interface {
	New(ctx context.Context) (einomodel.ToolCallingChatModel, error)
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter, ProviderAzure, ProviderGemini:
	default:
		return fmt.Errorf("%w: unsupported llm provider=%q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.provider() == ProviderAzure && strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: azure endpoint is required", contractx.ErrValidation)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("%w: call timeout must be >= 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) provider() Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

// modelFor resolves the model name and temperature for an agent; a negative
// per-agent temperature inherits the default.
func (c Config) modelFor(agentType contractx.AgentType) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	var override string
	agentTemp := float32(-1)
	switch agentType {
	case contractx.AgentTypeRouter:
		override, agentTemp = c.RouterModel, c.RouterTemperature
	case contractx.AgentTypeIT:
		override, agentTemp = c.ITModel, c.ITTemperature
	case contractx.AgentTypeFinance:
		override, agentTemp = c.FinanceModel, c.FinanceTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}
	if agentTemp >= 0 {
		temp = agentTemp
	}
	return modelName, temp
}

// BuilderFor returns the provider-specific model builder for an agent.
func (c Config) BuilderFor(agentType contractx.AgentType) Builder {
	modelName, temp := c.modelFor(agentType)
	maxTokens := c.MaxCompletionToken

	if c.provider() == ProviderGemini {
		return &geminix.Config{
			APIKey:      strings.TrimSpace(c.APIKey),
			BaseURL:     c.geminiBaseURL(),
			Model:       modelName,
			MaxTokens:   maxTokens,
			Temperature: temp,
		}
	}

	return c.OpenRouterFor(agentType)
}

// OpenRouterFor returns the OpenAI-compatible config for an agent; it is
// also used for Azure deployments.
func (c Config) OpenRouterFor(agentType contractx.AgentType) *openrouterx.Config {
	modelName, temp := c.modelFor(agentType)
	maxCompletionToken := c.MaxCompletionToken
	conf := &openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
	if c.provider() == ProviderAzure {
		conf.ByAzure = true
		conf.APIVersion = strings.TrimSpace(c.APIVersion)
		if conf.APIVersion == "" {
			conf.APIVersion = defaultAzureAPIVersion
		}
	}
	return conf
}

// geminiBaseURL drops the OpenRouter default so the genai client uses its own endpoint.
func (c Config) geminiBaseURL() string {
	base := strings.TrimSpace(c.BaseURL)
	if strings.Contains(base, "openrouter.ai") {
		return ""
	}
	return base
}
