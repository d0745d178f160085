package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/fiscalia/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a narrative summary of a classification result
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Result is the finished classification to summarize
	Result model.ClassificationResult

	// AllowedCodes is the STRICT allowlist of CFOP codes the LLM can mention.
	// Any other code in the answer is rejected in strict mode.
	AllowedCodes []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// CitedCodes are the CFOP codes the LLM actually mentioned
	CitedCodes []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "groq", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom OpenAI-compatible endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Strict rejects answers that mention codes absent from the result
	Strict bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		Strict:    true,
		MaxTokens: 800,
	}
}

// BuildPrompt constructs the default prompt for summarizing a classification
func BuildPrompt(result model.ClassificationResult, allowedCodes []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing the fiscal classification of a Brazilian NF-e. The classification was produced by a deterministic rule engine; you only explain it.

CRITICAL RULES:
1. You MUST ONLY mention CFOP codes from this allowed list:
%s

2. DO NOT invent tax rules, rates, or legislation beyond the alerts below.
3. If the alerts are empty, say that no sector-specific alert was raised.
4. Never change the classification; describe it.

Classification:
- CFOP: %s (%s)
- Operation type: %s
- Sector: %s
- Cost center: %s
- Document type: %s
- Special regime: %s
`, joinCodes(allowedCodes),
		result.Code, result.Reference.Description,
		result.Reference.OperationType,
		result.DetectedSectorName,
		result.CostCenter,
		result.DocumentType,
		result.SpecialRegime)

	writeSection(&b, "Alerts", result.SpecificAlerts, 5)
	writeSection(&b, "Fiscal implications", result.FiscalImplications, 5)

	b.WriteString("\nProvide a 3-4 sentence summary for the accountant who will archive this document.")

	return b.String()
}

// Helper functions

func writeSection(b *strings.Builder, title string, lines []string, limit int) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for i, line := range lines {
		if i >= limit {
			fmt.Fprintf(b, "... and %d more\n", len(lines)-limit)
			break
		}
		fmt.Fprintf(b, "- %s\n", line)
	}
}

func joinCodes(codes []string) string {
	if len(codes) == 0 {
		return "(No codes available)"
	}
	var b strings.Builder
	for i, code := range codes {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more codes", len(codes)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", code)
	}
	return b.String()
}
