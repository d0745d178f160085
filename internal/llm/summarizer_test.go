package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/ppiankov/fiscalia/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

type mockError struct {
	msg string
}

func (e *mockError) Error() string {
	return e.msg
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summarizer.provider != nil {
		t.Error("Expected provider to be nil when disabled")
	}
	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "unknown"}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestSummarizer_GenerateSummary_Disabled(t *testing.T) {
	summarizer := &Summarizer{}

	summary, err := summarizer.GenerateSummary(context.Background(), saleResult())
	if err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if summary != nil {
		t.Error("Expected nil summary when provider disabled")
	}
}

func TestSummarizer_GenerateSummary_ProviderUnavailable(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{name: "test-provider", available: false},
		config:   Config{Strict: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), saleResult())
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary object with warnings")
	}
	if summary.Enabled {
		t.Error("Expected summary to be marked as disabled")
	}
	if len(summary.Warnings) == 0 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected warning about provider unavailability, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &SummarizeResponse{
			Summary:    "This is a test summary.",
			CitedCodes: []string{"5.101"},
			Model:      "test-model",
			TokensUsed: 150,
		},
	}

	summarizer := &Summarizer{
		provider: mock,
		config:   Config{Model: "test-model", Strict: true, MaxTokens: 300},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), saleResult())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary == nil || !summary.Enabled {
		t.Fatal("Expected enabled summary")
	}
	if summary.Provider != "test-provider" {
		t.Errorf("Expected provider 'test-provider', got '%s'", summary.Provider)
	}
	if summary.Model != "test-model" {
		t.Errorf("Expected model 'test-model', got '%s'", summary.Model)
	}
	if !summary.Strict {
		t.Error("Expected strict mode to be enabled")
	}
	if summary.SummaryMD != "This is a test summary." {
		t.Errorf("Expected summary text to match, got '%s'", summary.SummaryMD)
	}

	foundTokens, foundCitations := false, false
	for _, warning := range summary.Warnings {
		if strings.Contains(warning, "Tokens used") {
			foundTokens = true
		}
		if strings.Contains(warning, "Verified") && strings.Contains(warning, "citations") {
			foundCitations = true
		}
	}
	if !foundTokens {
		t.Error("Expected warning about tokens used")
	}
	if !foundCitations {
		t.Error("Expected warning about verified citations")
	}

	if mock.lastReq.MaxTokens != 300 {
		t.Errorf("Expected max tokens to be forwarded, got %d", mock.lastReq.MaxTokens)
	}
	if len(mock.lastReq.AllowedCodes) == 0 || mock.lastReq.AllowedCodes[0] != "5.101" {
		t.Errorf("Expected allowlist to start with the result code, got %v", mock.lastReq.AllowedCodes)
	}
}

func TestSummarizer_GenerateSummary_ProviderError(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{
			name:      "test-provider",
			available: true,
			err:       &mockError{msg: "API rate limit exceeded"},
		},
		config: Config{Strict: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), saleResult())

	// Should not fail the classification, just return summary with warnings
	if err != nil {
		t.Errorf("Expected no error (graceful degradation), got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary with error warning")
	}
	if !summary.Enabled {
		t.Error("Expected summary to be marked as enabled (but failed)")
	}

	found := false
	for _, warning := range summary.Warnings {
		if strings.Contains(warning, "failed") && strings.Contains(warning, "rate limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected warning to mention error: %v", summary.Warnings)
	}
}

func TestAllowedCodes(t *testing.T) {
	result := model.ClassificationResult{
		Code:      "5.405",
		Reference: model.ReferenceEntry{Description: "Venda com ST"},
		SpecificAlerts: []string{
			"COMMERCE ALERT: CFOP 5.405 retained ST earlier.",
			"LEGAL NOTICE: CFOP 5.405 (sale of goods subject to ST), compare 6.404.",
		},
	}

	codes := AllowedCodes(result)
	if len(codes) != 2 || codes[0] != "5.405" || codes[1] != "6.404" {
		t.Errorf("Unexpected allowlist: %v", codes)
	}
}

func TestRenderSeparateMarkdown_Disabled(t *testing.T) {
	if md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}); md != "" {
		t.Error("Expected empty markdown when disabled")
	}
}

func TestRenderSeparateMarkdown_Nil(t *testing.T) {
	if md := RenderSeparateMarkdown(nil); md != "" {
		t.Error("Expected empty markdown when nil")
	}
}

func TestRenderSeparateMarkdown_Success(t *testing.T) {
	summary := &model.LLMSummary{
		Enabled:   true,
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		Strict:    true,
		SummaryMD: "This is the generated summary content.",
		Warnings: []string{
			"Tokens used: 150",
			"Verified 1 CFOP citations against the classification",
		},
	}

	md := RenderSeparateMarkdown(summary)
	if md == "" {
		t.Fatal("Expected markdown to be generated")
	}

	requiredSections := []string{
		"# LLM Summary",
		"GENERATED CONTENT",
		"Provider",
		"openai",
		"Model",
		"gpt-4o-mini",
		"Strict Code Mode",
		"true",
		"This is the generated summary content.",
		"## Notes",
		"Tokens used: 150",
		"Verified 1 CFOP citations",
	}
	for _, section := range requiredSections {
		if !strings.Contains(md, section) {
			t.Errorf("Expected markdown to contain '%s'", section)
		}
	}

	if !strings.Contains(md, "determined independently") {
		t.Error("Expected disclaimer about independence from LLM")
	}
}

func TestRenderSeparateMarkdown_NoSummary(t *testing.T) {
	md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "test-provider"})
	if !strings.Contains(md, "No summary generated") {
		t.Error("Expected message about no summary")
	}
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	result := saleResult()
	result.DetectedSectorName = "Agronegócio"
	result.CostCenter = "Comercial / Vendas"
	result.DocumentType = model.DocumentTypeSale
	result.SpecialRegime = model.RegimeStandard

	prompt := BuildPrompt(result, []string{"5.101"})

	for _, want := range []string{
		"CRITICAL RULES",
		"- 5.101",
		"Venda de produção do estabelecimento",
		"Agronegócio",
		"Comercial / Vendas",
		model.DocumentTypeSale,
		"Alerts:",
		"FUNRURAL",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "Fiscal implications:") {
		t.Error("Expected empty sections to be omitted")
	}
}

func TestBuildPrompt_NoCodes(t *testing.T) {
	prompt := BuildPrompt(model.ClassificationResult{}, nil)
	if !strings.Contains(prompt, "(No codes available)") {
		t.Error("Expected placeholder for empty allowlist")
	}
}

func TestJoinCodes_Many(t *testing.T) {
	codes := make([]string, 25)
	for i := range codes {
		codes[i] = "5.101"
	}
	if out := joinCodes(codes); !strings.Contains(out, "... and 5 more codes") {
		t.Errorf("Expected truncation marker, got %s", out)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "" {
		t.Error("Expected LLM to be disabled by default")
	}
	if !cfg.Strict {
		t.Error("Expected strict mode by default")
	}
	if cfg.Timeout != 30 {
		t.Errorf("Expected timeout 30, got %d", cfg.Timeout)
	}
}
