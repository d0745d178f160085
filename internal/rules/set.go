package rules

import (
	"strings"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
)

// Set is the immutable configuration shared by every classification.
// Codes inside sector and cost-center configs are normalized on construction.
type Set struct {
	sectors     []SectorEntry
	sectorIndex map[string]int
	costCenters map[string]model.CostCenterConfig
	industry    map[string]string
}

// NewSet copies and normalizes the given configuration
func NewSet(sectors []SectorEntry, costCenters map[string]model.CostCenterConfig, industry map[string]string) *Set {
	s := &Set{
		sectors:     make([]SectorEntry, 0, len(sectors)),
		sectorIndex: make(map[string]int, len(sectors)),
		costCenters: make(map[string]model.CostCenterConfig, len(costCenters)),
		industry:    make(map[string]string, len(industry)),
	}

	for _, e := range sectors {
		cfg := e.Config
		cfg.SpecificTaxes = cloneStrings(cfg.SpecificTaxes)
		cfg.Particularities = cloneStrings(cfg.Particularities)
		cfg.RequiredDocuments = cloneStrings(cfg.RequiredDocuments)
		cfg.PrioritizedCostCenters = cloneStrings(cfg.PrioritizedCostCenters)
		cfg.CommonInboundCodes = normalizeCodes(cfg.CommonInboundCodes)
		cfg.CommonOutboundCodes = normalizeCodes(cfg.CommonOutboundCodes)

		if i, dup := s.sectorIndex[e.Key]; dup {
			s.sectors[i].Config = cfg
			continue
		}
		s.sectorIndex[e.Key] = len(s.sectors)
		s.sectors = append(s.sectors, SectorEntry{Key: e.Key, Config: cfg})
	}

	for id, cc := range costCenters {
		cc.AssociatedCodes = normalizeCodes(cc.AssociatedCodes)
		s.costCenters[id] = cc
	}

	for prefix, key := range industry {
		s.industry[strings.TrimSpace(prefix)] = strings.TrimSpace(key)
	}

	return s
}

// Sector returns the configuration for a sector key
func (s *Set) Sector(key string) (model.SectorConfig, bool) {
	if s == nil {
		return model.SectorConfig{}, false
	}
	i, ok := s.sectorIndex[key]
	if !ok {
		return model.SectorConfig{}, false
	}
	return s.sectors[i].Config, true
}

// Sectors returns all sectors in declaration order
func (s *Set) Sectors() []SectorEntry {
	if s == nil {
		return nil
	}
	out := make([]SectorEntry, len(s.sectors))
	copy(out, s.sectors)
	return out
}

// CostCenter returns a cost center by id
func (s *Set) CostCenter(id string) (model.CostCenterConfig, bool) {
	if s == nil {
		return model.CostCenterConfig{}, false
	}
	cc, ok := s.costCenters[id]
	return cc, ok
}

// SectorForIndustry maps a two-digit CNAE prefix to a sector key
func (s *Set) SectorForIndustry(prefix string) (string, bool) {
	if s == nil || prefix == "" || prefix == model.IndustryMapDefaultKey {
		return "", false
	}
	key, ok := s.industry[prefix]
	return key, ok && key != ""
}

// DefaultSector returns the industry map default, or the built-in default sector
func (s *Set) DefaultSector() string {
	if s != nil {
		if key := s.industry[model.IndustryMapDefaultKey]; key != "" {
			return key
		}
	}
	return model.DefaultSectorKey
}

// Counts reports how many sectors, cost centers and industry prefixes are loaded
func (s *Set) Counts() (sectors, costCenters, industryPrefixes int) {
	if s == nil {
		return 0, 0, 0
	}
	prefixes := len(s.industry)
	if _, ok := s.industry[model.IndustryMapDefaultKey]; ok {
		prefixes--
	}
	return len(s.sectors), len(s.costCenters), prefixes
}

func normalizeCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = cfop.Normalize(strings.TrimSpace(c))
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
