package model

import "time"

// ClassificationResult is the consolidated report for one document.
// List fields are the concatenation, in stage order (base, specialist,
// customization, legal update), of each stage's contributions.
type ClassificationResult struct {
	Reference    ReferenceEntry `json:"cfop_info"`
	Code         string         `json:"cfop"`          // Normalized code used for lookup
	OriginalCode string         `json:"cfop_original"` // Code as extracted

	SectorKey          string `json:"ramo_chave"`
	DetectedSectorName string `json:"ramo_empresa_detectado"`
	CostCenter         string `json:"centro_custo"`
	DocumentType       string `json:"tipo_documento"`

	FiscalImplications      []string `json:"implicacoes_fiscais"`
	ArchivalRecommendations []string `json:"recomendacoes_arquivamento"`
	SpecificAlerts          []string `json:"alertas_especificos"`

	SpecialRegime string `json:"ramo_especifico_customizado"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional, produced after classification and never read back
}

// SectorOutput is what a sector specialist contributes to a result
type SectorOutput struct {
	Implications    []string `json:"implicacoes_fiscais"`
	Recommendations []string `json:"recomendacoes_arquivamento"`
	Alerts          []string `json:"alertas_especificos"`
}

// RegimeOutput is the cross-sector special regime analysis
type RegimeOutput struct {
	Regime       string   `json:"ramo_especifico_detectado"`
	Alerts       []string `json:"alertas_customizados"`
	Implications []string `json:"implicacoes_customizadas"`
}

// Special regimes
const (
	RegimeStandard     = "Standard"
	RegimePublicSector = "Public Sector"
	RegimeThirdSector  = "Third Sector"
)

// Cost centers used when no prioritized cost center claims the code
const (
	CostCenterPurchasing     = "Purchasing"
	CostCenterSales          = "Sales"
	CostCenterAdministrative = "Administrative"
)

// Document types
const (
	DocumentTypeService       = "Service Provision"
	DocumentTypePurchase      = "Purchase/Inbound"
	DocumentTypeSale          = "Sale/Outbound"
	DocumentTypeNonCommercial = "Non-commercial operation"
)

// LLMSummary contains an optional LLM-generated narrative of the result
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Strict    bool     `json:"strict"`               // Whether unknown-code enforcement was enabled
	SummaryMD string   `json:"summary_md,omitempty"` // Markdown summary
	Warnings  []string `json:"warnings,omitempty"`
}

// BatchSummary is the outcome of processing a folder of documents
type BatchSummary struct {
	Success    int           `json:"sucesso"`
	Failures   int           `json:"falhas"`
	Total      int           `json:"total"`
	OutputPath string        `json:"output_path"`
	Files      []FileOutcome `json:"arquivos,omitempty"`
}

// FileOutcome records what happened to one input file in a batch
type FileOutcome struct {
	File        string                `json:"arquivo"`
	Destination string                `json:"destino,omitempty"` // Copy path, empty on failure
	Document    *Document             `json:"documento,omitempty"`
	Result      *ClassificationResult `json:"resultado,omitempty"`
	Error       string                `json:"erro,omitempty"`
	ProcessedAt time.Time             `json:"processado_em"`
}
