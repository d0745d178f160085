package llm

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/util"
)

// codePattern matches CFOP codes in canonical form
var codePattern = regexp.MustCompile(`\b\d\.\d{3}\b`)

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI-compatible provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", providerName(config))
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(config.Timeout, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerName(p.config)
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Listing models is the lightest authenticated call
	if _, err := p.client.ListModels(ctx); err != nil {
		logging.New("llm").Warn("provider check failed", "provider", p.Name(), "error", err)
		return false
	}
	return true
}

// Summarize generates a summary using the Chat Completions API
func (p *OpenAIProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Result, req.AllowedCodes)
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 800
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You explain fiscal document classifications to accountants and never contradict the rule engine.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.Name())
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	cited := extractCodes(summary)

	if p.config.Strict {
		for _, code := range cited {
			if !slices.Contains(req.AllowedCodes, code) {
				return nil, fmt.Errorf("CODE LEAK: LLM mentioned CFOP %s which is not part of the classification", code)
			}
		}
	}

	return &SummarizeResponse{
		Summary:    summary,
		CitedCodes: cited,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// extractCodes returns the distinct CFOP codes found in text, in order
func extractCodes(text string) []string {
	var unique []string
	for _, m := range codePattern.FindAllString(text, -1) {
		code := cfop.Normalize(m)
		if !slices.Contains(unique, code) {
			unique = append(unique, code)
		}
	}
	return unique
}

func providerName(config Config) string {
	if config.Provider == "" {
		return "openai"
	}
	return config.Provider
}
