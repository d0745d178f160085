package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/fiscalia/internal/model"
)

// Summarizer wraps a Provider and degrades gracefully: provider failures are
// reported as warnings on the summary, never as errors.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; an empty provider name disables it
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary produces the narrative summary of result.
// A disabled summarizer returns (nil, nil).
func (s *Summarizer) GenerateSummary(ctx context.Context, result model.ClassificationResult) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Provider: s.provider.Name(),
		Model:    s.config.Model,
		Strict:   s.config.Strict,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("LLM provider %s is not available; summary skipped", s.provider.Name()))
		return summary, nil
	}
	summary.Enabled = true

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Result:       result,
		AllowedCodes: AllowedCodes(result),
		Model:        s.config.Model,
		MaxTokens:    s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.Strict {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d CFOP citations against the classification", len(resp.CitedCodes)))
	}

	return summary, nil
}

// AllowedCodes returns every CFOP code that appears in the result
func AllowedCodes(result model.ClassificationResult) []string {
	var codes []string
	add := func(code string) {
		if code != "" && !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}

	add(result.Code)
	for _, text := range [][]string{
		{result.Reference.Description},
		result.SpecificAlerts,
		result.FiscalImplications,
		result.ArchivalRecommendations,
	} {
		for _, line := range text {
			for _, code := range extractCodes(line) {
				add(code)
			}
		}
	}
	return codes
}

// RenderSeparateMarkdown renders the summary as a standalone Markdown file.
// It returns "" for a nil or disabled summary.
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT**: this text was written by a language model from the classification below.\n")
	b.WriteString("> The classification, alerts and implications were determined independently by the rule engine.\n\n")

	fmt.Fprintf(&b, "- **Provider**: %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Code Mode**: %t\n\n", summary.Strict)

	b.WriteString("## Summary\n\n")
	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
