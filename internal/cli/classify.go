package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fiscalia/internal/extract"
	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/pipeline"
	"github.com/ppiankov/fiscalia/internal/store"
)

var (
	outJSON     string
	outMD       string
	classifyTO  time.Duration
	noHistory   bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify a single NF-e document",
	Long: `Classify reads one NF-e (XML, or a pre-extracted JSON document) and:
- Normalizes the CFOP of the first line item and looks it up
- Infers the issuer's sector from the CNAE
- Assigns cost center and document type
- Applies sector alerts, special regimes and legal update notices

The summary is printed to stdout. Use --json / --md to write report files.

Example:
  fiscalia classify nota.xml
  fiscalia classify nota.xml --json report.json --md report.md
  fiscalia classify nota.xml --llm --llm-provider groq`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	// Output flags
	classifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	classifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	classifyCmd.Flags().DurationVar(&classifyTO, "timeout", time.Minute, "overall timeout, including the LLM summary")
	classifyCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the result in the history database")

	addLLMFlags(classifyCmd)
}

// addLLMFlags registers the flags shared by classify and batch
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM summary generation")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, groq, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), classifyTO)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLLMFlags(cmd, cfg)

	p, _, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	doc, err := extract.NewRegistry().Extract(file)
	if err != nil {
		return err
	}

	result, err := p.ProcessDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("classify %s: %w", file, err)
	}
	if llmEnabled {
		p.Summarize(ctx, result)
	}

	report := &pipeline.Report{
		Source:      file,
		GeneratedAt: time.Now(),
		Document:    doc,
		Result:      result,
	}

	renderer := pipeline.NewRenderer(cfg.Output.Color)
	renderer.RenderSummary(cmd.OutOrStdout(), report)

	written, err := renderer.WriteOutputs(report, outJSON, outMD)
	for _, path := range written {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	}
	if err != nil {
		return err
	}

	if s := openStore(ctx, cfg, noHistory); s != nil {
		defer func() { _ = s.Close() }()
		if err := s.Save(ctx, store.NewRecord(store.NewRunID(), file, doc, result)); err != nil {
			logging.New("store").Warn("failed to record classification", "error", err)
		}
	}

	return nil
}
