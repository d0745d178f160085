package model

// SectorConfig describes the fiscal profile of one industry sector.
// Loaded once at startup and never mutated afterwards.
type SectorConfig struct {
	Name                   string   `json:"nome" yaml:"nome"`
	SpecificTaxes          []string `json:"impostos_especificos,omitempty" yaml:"impostos_especificos,omitempty"`
	Particularities        []string `json:"particularidades,omitempty" yaml:"particularidades,omitempty"`
	RequiredDocuments      []string `json:"documentos_obrigatorios,omitempty" yaml:"documentos_obrigatorios,omitempty"`
	PrioritizedCostCenters []string `json:"centros_custo_prioritarios,omitempty" yaml:"centros_custo_prioritarios,omitempty"` // Order matters
	CommonInboundCodes     []string `json:"cfops_entrada_comuns,omitempty" yaml:"cfops_entrada_comuns,omitempty"`
	CommonOutboundCodes    []string `json:"cfops_saida_comuns,omitempty" yaml:"cfops_saida_comuns,omitempty"`
}

// HasCode reports whether code is one of the sector's common inbound or outbound codes
func (s SectorConfig) HasCode(code string) bool {
	return containsString(s.CommonInboundCodes, code) || containsString(s.CommonOutboundCodes, code)
}

// CostCenterConfig is an accounting bucket and the codes associated with it
type CostCenterConfig struct {
	Name            string   `json:"nome" yaml:"nome"`
	AssociatedCodes []string `json:"cfops_associados,omitempty" yaml:"cfops_associados,omitempty"`
}

// HasCode reports whether code is associated with the cost center
func (c CostCenterConfig) HasCode(code string) bool {
	return containsString(c.AssociatedCodes, code)
}

// Well-known sector keys
const (
	SectorAgribusiness = "agronegocio"
	SectorAutomotive   = "automotivo"
	SectorIndustry     = "industria"
	SectorCommerce     = "comercio"
	SectorServices     = "servicos"

	// DefaultSectorKey is used when the industry map carries no "default" entry
	DefaultSectorKey = SectorCommerce

	// IndustryMapDefaultKey is the industry map entry consulted when no signal matches
	IndustryMapDefaultKey = "default"
)

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
