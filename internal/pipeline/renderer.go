package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/fiscalia/internal/llm"
	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/model"
)

// Report is a classified document as written to disk
type Report struct {
	Source      string                      `json:"arquivo,omitempty"`
	GeneratedAt time.Time                   `json:"gerado_em"`
	Document    *model.Document             `json:"documento"`
	Result      *model.ClassificationResult `json:"classificacao"`
}

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	color bool

	title   lipgloss.Style
	label   lipgloss.Style
	alert   lipgloss.Style
	info    lipgloss.Style
	subtle  lipgloss.Style
	box     lipgloss.Style
	success lipgloss.Style
}

// NewRenderer creates a renderer; color=false prints plain text
func NewRenderer(color bool) *Renderer {
	return &Renderer{
		color: color,
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")),
		label: lipgloss.NewStyle().
			Bold(true),
		alert: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1D3")),
		subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")),
	}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *Report, path string) error {
	return writeFile(path, []byte(Markdown(report)))
}

// RenderLLMMarkdown writes an already rendered LLM summary
func (r *Renderer) RenderLLMMarkdown(markdown, path string) error {
	return writeFile(path, []byte(markdown))
}

// WriteOutputs writes the requested files and returns the paths written.
// With a Markdown path and an enabled LLM summary, the summary goes to a
// sibling ".llm.md" file; failing to write it is not an error.
func (r *Renderer) WriteOutputs(report *Report, jsonPath, mdPath string) ([]string, error) {
	var written []string

	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return written, fmt.Errorf("render JSON: %w", err)
		}
		written = append(written, jsonPath)
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return written, fmt.Errorf("render markdown: %w", err)
		}
		written = append(written, mdPath)

		if report.Result != nil && report.Result.LLM != nil && report.Result.LLM.Enabled {
			llmPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
			if err := r.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.Result.LLM), llmPath); err != nil {
				logging.New("renderer").Warn("failed to write LLM summary", "path", llmPath, "error", err)
			} else {
				written = append(written, llmPath)
			}
		}
	}

	return written, nil
}

// Markdown renders the report with the same sections as the terminal summary
func Markdown(report *Report) string {
	var b strings.Builder
	res := report.Result

	b.WriteString("# Fiscal Classification Report\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "**File**: `%s`  \n", report.Source)
	}
	fmt.Fprintf(&b, "**Generated**: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	if doc := report.Document; doc != nil {
		b.WriteString("## Document\n\n")
		b.WriteString("| Field | Value |\n|---|---|\n")
		for _, row := range documentRows(doc) {
			fmt.Fprintf(&b, "| %s | %s |\n", row[0], mdEscape(row[1]))
		}
		b.WriteString("\n")
	}

	if res == nil {
		return b.String()
	}

	b.WriteString("## Classification\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, row := range classificationRows(res) {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], mdEscape(row[1]))
	}

	writeMDList(&b, "Alerts", res.SpecificAlerts)
	writeMDList(&b, "Fiscal Implications", res.FiscalImplications)
	writeMDList(&b, "Archival Recommendations", res.ArchivalRecommendations)

	return b.String()
}

// RenderSummary prints a boxed summary of the report to w
func (r *Renderer) RenderSummary(w io.Writer, report *Report) {
	var b strings.Builder
	res := report.Result

	if doc := report.Document; doc != nil {
		b.WriteString(r.style(r.title, "Document") + "\n")
		for _, row := range documentRows(doc) {
			fmt.Fprintf(&b, "  %s %s\n", r.style(r.label, row[0]+":"), row[1])
		}
		b.WriteString("\n")
	}

	if res != nil {
		b.WriteString(r.style(r.title, "Classification") + "\n")
		for _, row := range classificationRows(res) {
			fmt.Fprintf(&b, "  %s %s\n", r.style(r.label, row[0]+":"), row[1])
		}
		r.writeList(&b, "Alerts", res.SpecificAlerts, r.alert, "no specific alerts")
		r.writeList(&b, "Fiscal Implications", res.FiscalImplications, r.info, "")
		r.writeList(&b, "Archival Recommendations", res.ArchivalRecommendations, r.success, "")
	}

	content := strings.TrimRight(b.String(), "\n")
	if !r.color {
		fmt.Fprintln(w, content)
		return
	}
	fmt.Fprintln(w, r.box.Render(content))
}

func (r *Renderer) writeList(b *strings.Builder, title string, lines []string, st lipgloss.Style, empty string) {
	if len(lines) == 0 && empty == "" {
		return
	}
	fmt.Fprintf(b, "\n%s\n", r.style(r.title, title))
	if len(lines) == 0 {
		fmt.Fprintf(b, "  %s\n", r.style(r.subtle, empty))
		return
	}
	for _, line := range lines {
		fmt.Fprintf(b, "  • %s\n", r.style(st, line))
	}
}

func (r *Renderer) style(st lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return st.Render(text)
}

func documentRows(doc *model.Document) [][2]string {
	h := doc.Header
	rows := [][2]string{
		{"Number", h.Number},
		{"Access key", h.AccessKey},
		{"Issue date", h.IssueDate},
		{"Issuer", joinNonEmpty(h.IssuerName, h.IssuerTaxID)},
		{"Issuer CNAE", h.IssuerIndustryCode},
		{"Recipient", joinNonEmpty(h.RecipientName, h.RecipientTaxID)},
		{"Total", fmt.Sprintf("R$ %.2f", h.TotalValue)},
		{"Items", fmt.Sprintf("%d", len(doc.Items))},
	}
	out := rows[:0]
	for _, row := range rows {
		if row[1] != "" {
			out = append(out, row)
		}
	}
	return out
}

func classificationRows(res *model.ClassificationResult) [][2]string {
	return [][2]string{
		{"CFOP", fmt.Sprintf("%s - %s", res.Code, res.Reference.Description)},
		{"Operation type", res.Reference.OperationType},
		{"Sector", res.DetectedSectorName},
		{"Cost center", res.CostCenter},
		{"Document type", res.DocumentType},
		{"Special regime", res.SpecialRegime},
	}
}

func writeMDList(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, line := range lines {
		fmt.Fprintf(b, "- %s\n", line)
	}
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " / ")
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
