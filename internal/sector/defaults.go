package sector

import (
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/rules"
)

// DefaultRules returns the built-in alert tables, one per supported sector.
// Rules are evaluated in slice order and their messages kept verbatim.
func DefaultRules() map[string]rules.SectorRules {
	return map[string]rules.SectorRules{
		model.SectorAgribusiness: {
			Label: "agribusiness",
			Alerts: []rules.AlertRule{
				{
					Prefixes: []string{"5.", "6."},
					Message:  "AGRO ALERT: Check the FUNRURAL calculation for this sale operation.",
				},
				{
					Codes:   []string{"1.101", "2.101", "5.101", "6.101"},
					Message: "AGRO INFO: Grain operation. Check whether an ICMS exemption or deferral applies.",
				},
			},
		},
		model.SectorAutomotive: {
			Label: "the automotive sector",
			Alerts: []rules.AlertRule{
				{
					Codes:   []string{"5.401", "5.403", "6.401", "6.403"},
					Message: "AUTOMOTIVE ALERT: ICMS-ST operation. Confirm the item is an auto part and that the MVA is correct.",
				},
				{
					ItemContains:       "pneu",
					MissingProductCode: true,
					PerItem:            true,
					Message:            "AUTOMOTIVE ALERT: Item '{item}' has no product code. Check its registration.",
				},
			},
		},
		model.SectorIndustry: {
			Label: "industry",
			Alerts: []rules.AlertRule{
				{
					Codes:   []string{"5.401", "5.403", "5.405", "6.401", "6.403", "6.404"},
					Message: "INDUSTRY ALERT: Tax substitution (ICMS-ST) operation. Check the calculation base and MVA.",
				},
				{
					Prefixes:     []string{"1.", "2."},
					ItemContains: "matéria-prima",
					Message:      "INDUSTRY INFO: Raw-material inbound document. Input for production cost calculation.",
				},
			},
		},
		model.SectorCommerce: {
			Label: "sector comercio",
			Alerts: []rules.AlertRule{
				{
					Codes:   []string{"5.405"},
					Message: "COMMERCE ALERT: Sale of goods with ICMS-ST. Make sure the tax was withheld earlier.",
				},
			},
		},
		model.SectorServices: {
			Label: "sector servicos",
			Alerts: []rules.AlertRule{
				{
					Prefixes: []string{"5.9", "6.9"},
					Message:  "SERVICES ALERT: Check withholding of taxes (IRRF, CSRF) at source.",
				},
			},
		},
	}
}

// MergeRules overlays per-sector overrides on base. An override replaces the
// whole alert table of its sector; an empty label keeps the base label.
func MergeRules(base, overrides map[string]rules.SectorRules) map[string]rules.SectorRules {
	out := make(map[string]rules.SectorRules, len(base)+len(overrides))
	for key, table := range base {
		out[key] = table
	}
	for key, table := range overrides {
		if table.Label == "" {
			table.Label = out[key].Label
		}
		out[key] = table
	}
	return out
}
