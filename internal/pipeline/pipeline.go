package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/classify"
	"github.com/ppiankov/fiscalia/internal/llm"
	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/regime"
	"github.com/ppiankov/fiscalia/internal/rules"
	"github.com/ppiankov/fiscalia/internal/sector"
)

// Inferencer picks the sector key of a document
type Inferencer interface {
	Infer(doc *model.Document) string
}

// Classifier produces the base classification
type Classifier interface {
	Classify(code, sectorKey string, doc *model.Document) (*model.ClassificationResult, error)
}

// Specialists resolves the sector specialist for a key
type Specialists interface {
	Get(sectorKey string) (sector.Specialist, bool)
}

// Customizer detects special regimes and legal updates
type Customizer interface {
	AnalyzeSpecialRegime(doc *model.Document) model.RegimeOutput
	LegalUpdateAlerts(code string) []string
}

// Summarizer produces the optional narrative summary
type Summarizer interface {
	IsEnabled() bool
	GenerateSummary(ctx context.Context, result model.ClassificationResult) (*model.LLMSummary, error)
}

// Stages are the components a Pipeline runs, in order
type Stages struct {
	Inferencer  Inferencer
	Classifier  Classifier
	Specialists Specialists
	Customizer  Customizer
	Summarizer  Summarizer // Optional
}

// Pipeline orchestrates the classification of one document.
// It holds only read-only state and is safe for concurrent use.
type Pipeline struct {
	stages Stages
	logger *slog.Logger
}

// NewPipeline creates a pipeline from already constructed stages
func NewPipeline(stages Stages) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: logging.New("pipeline"),
	}
}

// ProcessDocument runs inference, base classification, the sector
// specialist, the special regime analysis and legal updates, appending each
// stage's lists in that order.
//
// A document without an operation code on its first item fails with
// *model.ExtractionError before any stage runs. Base classification errors
// are returned unchanged. A sector without a specialist is logged and skipped.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *model.Document) (*model.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := doc.PrimaryCode()
	if raw == "" {
		return nil, &model.ExtractionError{Err: model.ErrNoOperationCode}
	}

	sectorKey := p.stages.Inferencer.Infer(doc)

	result, err := p.stages.Classifier.Classify(raw, sectorKey, doc)
	if err != nil {
		return nil, err
	}

	if specialist, ok := p.stages.Specialists.Get(sectorKey); ok {
		out := specialist.Analyze(result.Code, doc)
		result.FiscalImplications = append(result.FiscalImplications, out.Implications...)
		result.ArchivalRecommendations = append(result.ArchivalRecommendations, out.Recommendations...)
		result.SpecificAlerts = append(result.SpecificAlerts, out.Alerts...)
	} else {
		p.logger.Warn("no specialist registered for sector, skipping", "sector", sectorKey, "cfop", result.Code)
	}

	reg := p.stages.Customizer.AnalyzeSpecialRegime(doc)
	result.SpecificAlerts = append(result.SpecificAlerts, reg.Alerts...)
	result.FiscalImplications = append(result.FiscalImplications, reg.Implications...)

	result.SpecificAlerts = append(result.SpecificAlerts, p.stages.Customizer.LegalUpdateAlerts(result.Code)...)
	result.SpecialRegime = reg.Regime

	p.logger.Debug("document classified",
		"cfop", result.Code,
		"sector", sectorKey,
		"regime", result.SpecialRegime,
		"alerts", len(result.SpecificAlerts))

	return result, nil
}

// Summarize attaches an LLM summary to result when a summarizer is enabled.
// Failures are logged; the classification itself is never changed.
func (p *Pipeline) Summarize(ctx context.Context, result *model.ClassificationResult) {
	if result == nil || p.stages.Summarizer == nil || !p.stages.Summarizer.IsEnabled() {
		return
	}

	summary, err := p.stages.Summarizer.GenerateSummary(ctx, *result)
	if err != nil {
		p.logger.Warn("LLM summary generation failed", "error", err)
		return
	}
	result.LLM = summary
}

// Resources is the read-only data a pipeline is built from
type Resources struct {
	Table   *cfop.Table
	Rules   *rules.Set
	RuleSet *rules.RuleFile
}

// LoadResources reads the reference table and rule files named in cfg.
//
// Rule files are fail-soft: problems are logged and the empty configuration
// is used. The reference table is required. Files are read concurrently.
func LoadResources(cfg *model.Config) (*Resources, error) {
	logger := logging.New("loader")

	var (
		g     errgroup.Group
		table *cfop.Table
		set   *rules.Set
		rf    *rules.RuleFile
	)

	g.Go(func() error {
		var err error
		table, err = cfop.Load(cfg.Data.Path(cfg.Data.Reference))
		if err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		logger.Info("reference data loaded", "path", cfg.Data.Path(cfg.Data.Reference), "codes", table.Len())
		return nil
	})

	g.Go(func() error {
		var err error
		set, err = rules.Load(rules.Paths{
			Sectors:     cfg.Data.Path(cfg.Data.Sectors),
			CostCenters: cfg.Data.Path(cfg.Data.CostCenters),
			IndustryMap: cfg.Data.Path(cfg.Data.IndustryMap),
		})
		if err != nil {
			for _, line := range strings.Split(err.Error(), "\n") {
				logger.Warn("configuration degraded to empty", "error", line)
			}
		}
		sectors, costCenters, prefixes := set.Counts()
		logger.Debug("rules loaded", "sectors", sectors, "cost_centers", costCenters, "industry_prefixes", prefixes)
		return nil
	})

	g.Go(func() error {
		var err error
		rf, err = rules.LoadRuleFile(cfg.Data.Path(cfg.Data.Rules))
		if err != nil {
			logger.Warn("rule overrides ignored", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Resources{Table: table, Rules: set, RuleSet: rf}, nil
}

// Build wires the standard stages over res. The summarizer is created from
// cfg.LLM when a provider is configured; failures only disable it.
func Build(cfg *model.Config, res *Resources) *Pipeline {
	var overrides map[string]rules.SectorRules
	if res.RuleSet != nil {
		overrides = res.RuleSet.Sectors
	}

	stages := Stages{
		Inferencer:  sector.NewInferencer(res.Rules),
		Classifier:  classify.NewClassifier(res.Table, res.Rules),
		Specialists: sector.BuildRegistry(res.Rules, sector.MergeRules(sector.DefaultRules(), overrides)),
		Customizer:  regime.NewDefaultEngine(res.RuleSet),
	}

	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			logging.New("pipeline").Warn("failed to initialize LLM provider", "provider", cfg.LLM.Provider, "error", err)
		} else {
			stages.Summarizer = s
		}
	}

	return NewPipeline(stages)
}
