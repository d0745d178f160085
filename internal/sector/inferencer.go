// Package sector infers the issuer's business sector and runs the
// sector-specific alert rules.
package sector

import (
	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/rules"
	"github.com/ppiankov/fiscalia/internal/util"
)

// Inferencer picks a sector key for a document
type Inferencer struct {
	rules *rules.Set
}

// NewInferencer creates an inferencer over the given configuration
func NewInferencer(set *rules.Set) *Inferencer {
	return &Inferencer{rules: set}
}

// Infer returns a sector key. It never fails; when no signal matches it
// returns the configured default.
//
// Signals in priority order: issuer CNAE prefix, then the first line item's
// code against each sector's common codes (configuration order), then the
// industry map default.
func (i *Inferencer) Infer(doc *model.Document) string {
	if doc == nil {
		return i.rules.DefaultSector()
	}

	if prefix := IndustryPrefix(doc.Header.IssuerIndustryCode); prefix != "" {
		if key, ok := i.rules.SectorForIndustry(prefix); ok {
			return key
		}
	}

	if raw := doc.PrimaryCode(); raw != "" {
		code := cfop.Normalize(raw)
		for _, s := range i.rules.Sectors() {
			if s.Config.HasCode(code) {
				return s.Key
			}
		}
	}

	return i.rules.DefaultSector()
}

// IndustryPrefix returns the first two digits of a CNAE, ignoring
// punctuation. Codes with fewer than two digits yield "".
func IndustryPrefix(cnae string) string {
	digits := util.DigitsOnly(cnae)
	if len(digits) < 2 {
		return ""
	}
	return digits[:2]
}
