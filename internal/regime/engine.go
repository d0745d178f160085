// Package regime detects cross-sector special regimes (public sector,
// third sector) and time-sensitive legal-update alerts.
package regime

import (
	"strings"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/rules"
	"github.com/ppiankov/fiscalia/internal/util"
)

// Government entity tax-id prefix (União) and nonprofit CNAE division
const (
	PublicSectorTaxIDPrefix   = "00394460"
	ThirdSectorIndustryPrefix = "94"
)

// DefaultRegimes returns the built-in special regime rules.
// Later matches win the regime name; alerts and implications accumulate.
func DefaultRegimes() []rules.RegimeRule {
	return []rules.RegimeRule{
		{
			Name:         model.RegimePublicSector,
			Field:        rules.FieldRecipientTaxID,
			Prefix:       PublicSectorTaxIDPrefix,
			Alerts:       []string{"PUBLIC SECTOR ALERT: Check federal tax withholding rules (Lei 9.430/96)."},
			Implications: []string{"Differentiated tax treatment (immunity/exemption) may apply."},
		},
		{
			Name:   model.RegimeThirdSector,
			Field:  rules.FieldIssuerIndustryCode,
			Prefix: ThirdSectorIndustryPrefix,
			Alerts: []string{
				"THIRD SECTOR ALERT: Check whether the entity holds the CEBAS certificate (Certificado de Entidade Beneficente de Assistência Social).",
			},
			Implications: []string{"Federal tax immunity (IRPJ, CSLL, PIS, COFINS) may apply."},
		},
	}
}

// DefaultLegalUpdates returns the built-in legal-update table
func DefaultLegalUpdates() []rules.LegalUpdate {
	return []rules.LegalUpdate{
		{
			Code: "5.405",
			Alerts: []string{
				"LEGAL NOTICE: CFOP 5.405 (sale of goods subject to ST) - Check the latest MVA update for the destination state (Portaria XYZ/2024).",
			},
		},
	}
}

// Engine evaluates special regimes and legal updates
type Engine struct {
	regimes []rules.RegimeRule
	legal   map[string][]string
}

// NewEngine creates an engine from regime rules and legal updates.
// Legal updates are keyed by normalized code; a later entry for the same
// code replaces an earlier one.
func NewEngine(regimes []rules.RegimeRule, updates []rules.LegalUpdate) *Engine {
	e := &Engine{
		regimes: append([]rules.RegimeRule(nil), regimes...),
		legal:   make(map[string][]string, len(updates)),
	}
	for _, u := range updates {
		e.legal[cfop.Normalize(strings.TrimSpace(u.Code))] = append([]string(nil), u.Alerts...)
	}
	return e
}

// NewDefaultEngine creates an engine with the built-in tables extended by rf.
// Regimes in rf replace the defaults; legal updates in rf are added by code.
func NewDefaultEngine(rf *rules.RuleFile) *Engine {
	regimes := DefaultRegimes()
	updates := DefaultLegalUpdates()
	if rf != nil {
		if len(rf.Regimes) > 0 {
			regimes = rf.Regimes
		}
		updates = append(updates, rf.LegalUpdates...)
	}
	return NewEngine(regimes, updates)
}

// AnalyzeSpecialRegime checks the document header against each regime rule.
// Without a match the regime is Standard with empty lists.
func (e *Engine) AnalyzeSpecialRegime(doc *model.Document) model.RegimeOutput {
	out := model.RegimeOutput{
		Regime:       model.RegimeStandard,
		Alerts:       []string{},
		Implications: []string{},
	}
	if doc == nil {
		return out
	}

	for _, r := range e.regimes {
		prefix := util.DigitsOnly(r.Prefix)
		if prefix == "" {
			continue
		}
		if !strings.HasPrefix(util.DigitsOnly(headerField(doc.Header, r.Field)), prefix) {
			continue
		}
		out.Regime = r.Name
		out.Alerts = append(out.Alerts, r.Alerts...)
		out.Implications = append(out.Implications, r.Implications...)
	}

	return out
}

// LegalUpdateAlerts returns the alerts registered for code
func (e *Engine) LegalUpdateAlerts(code string) []string {
	alerts := e.legal[cfop.Normalize(strings.TrimSpace(code))]
	return append([]string{}, alerts...)
}

func headerField(h model.Header, field string) string {
	switch field {
	case rules.FieldRecipientTaxID:
		return h.RecipientTaxID
	case rules.FieldIssuerIndustryCode:
		return h.IssuerIndustryCode
	default:
		return ""
	}
}
