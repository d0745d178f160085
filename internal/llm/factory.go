package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/fiscalia/internal/model"
)

// preset is an OpenAI-compatible endpoint with its defaults
type preset struct {
	baseURL     string
	model       string
	keyOptional bool
}

var presets = map[string]preset{
	"openai": {model: "gpt-4o-mini"},
	"groq":   {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.1-8b-instant"},
	"ollama": {baseURL: "http://localhost:11434/v1", model: "llama3.1", keyOptional: true},
}

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	name := strings.ToLower(config.Provider)
	if name == "" {
		// No provider configured - LLM disabled
		return nil, nil
	}

	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, groq, ollama)", config.Provider)
	}

	config.Provider = name
	if config.BaseURL == "" {
		config.BaseURL = p.baseURL
	}
	if config.Model == "" {
		config.Model = p.model
	}
	if config.APIKey == "" && p.keyOptional {
		config.APIKey = name
	}

	provider, err := NewOpenAIProvider(config)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// ConfigFromModel converts the application config to llm.Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:   llmCfg.Provider,
		Model:      llmCfg.Model,
		APIKey:     llmCfg.APIKey,
		BaseURL:    llmCfg.BaseURL,
		Timeout:    llmCfg.Timeout,
		Strict:     llmCfg.Strict,
		MaxTokens:  llmCfg.MaxTokens,
		HTTPProxy:  httpCfg.HTTPProxy,
		HTTPSProxy: httpCfg.HTTPSProxy,
		NoProxy:    httpCfg.NoProxy,
	}
}
