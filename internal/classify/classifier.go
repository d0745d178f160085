// Package classify resolves the structural classification of a document:
// reference entry, cost center and document type.
package classify

import (
	"strings"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/rules"
)

// serviceCodes are operation codes that always denote a service
var serviceCodes = map[string]bool{
	"5.933": true,
	"6.933": true,
	"7.933": true,
}

// serviceKeywords mark a line item as a service (matched lowercased)
var serviceKeywords = []string{"serviço", "service"}

// Classifier performs the base classification stage
type Classifier struct {
	table *cfop.Table
	rules *rules.Set
}

// NewClassifier creates a classifier over a reference table and rule set
func NewClassifier(table *cfop.Table, set *rules.Set) *Classifier {
	return &Classifier{table: table, rules: set}
}

// Classify builds the base result for code under sectorKey.
//
// Checks run in order: reference data loaded, code present, sector
// configured. List fields of the result are empty and non-nil.
func (c *Classifier) Classify(code, sectorKey string, doc *model.Document) (*model.ClassificationResult, error) {
	if c.table.Len() == 0 {
		return nil, model.ErrReferenceNotLoaded
	}

	normalized := cfop.Normalize(strings.TrimSpace(code))
	entry, ok := c.table.Lookup(normalized)
	if !ok {
		return nil, &model.CodeNotFoundError{Raw: code, Normalized: normalized}
	}

	sectorCfg, ok := c.rules.Sector(sectorKey)
	if !ok {
		return nil, &model.SectorNotConfiguredError{Sector: sectorKey}
	}

	name := sectorCfg.Name
	if name == "" {
		name = sectorKey
	}

	return &model.ClassificationResult{
		Reference:               entry,
		Code:                    normalized,
		OriginalCode:            code,
		SectorKey:               sectorKey,
		DetectedSectorName:      name,
		CostCenter:              c.CostCenter(normalized, sectorCfg),
		DocumentType:            DocumentType(normalized, doc),
		FiscalImplications:      []string{},
		ArchivalRecommendations: []string{},
		SpecificAlerts:          []string{},
	}, nil
}

// CostCenter returns the first prioritized cost center associated with code,
// falling back to a direction-based default
func (c *Classifier) CostCenter(code string, sectorCfg model.SectorConfig) string {
	for _, id := range sectorCfg.PrioritizedCostCenters {
		cc, ok := c.rules.CostCenter(id)
		if !ok || !cc.HasCode(code) {
			continue
		}
		if cc.Name != "" {
			return cc.Name
		}
		return id
	}

	switch cfop.DirectionOf(code) {
	case model.DirectionInbound:
		return model.CostCenterPurchasing
	case model.DirectionOutbound:
		return model.CostCenterSales
	default:
		return model.CostCenterAdministrative
	}
}

// DocumentType classifies the operation as service, purchase, sale or
// non-commercial. Any item described as a service, or a service code,
// wins over the direction.
func DocumentType(code string, doc *model.Document) string {
	if serviceCodes[code] || hasServiceItem(doc) {
		return model.DocumentTypeService
	}

	switch cfop.DirectionOf(code) {
	case model.DirectionInbound:
		return model.DocumentTypePurchase
	case model.DirectionOutbound:
		return model.DocumentTypeSale
	default:
		return model.DocumentTypeNonCommercial
	}
}

func hasServiceItem(doc *model.Document) bool {
	if doc == nil {
		return false
	}
	for _, item := range doc.Items {
		desc := strings.ToLower(item.Description)
		for _, kw := range serviceKeywords {
			if strings.Contains(desc, kw) {
				return true
			}
		}
	}
	return false
}
