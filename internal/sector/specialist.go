package sector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/rules"
)

// Fixed messages shared by every sector
const (
	DefaultImplication    = "Check the standard tax legislation for this operation."
	ArchiveRecommendation = "Digitally archive the original source file."
)

// Specialist produces the sector-specific part of a classification
type Specialist interface {
	Analyze(code string, doc *model.Document) model.SectorOutput
}

// RuleSpecialist is a Specialist driven by a sector configuration and a
// declarative alert table
type RuleSpecialist struct {
	label  string
	config model.SectorConfig
	alerts []rules.AlertRule
}

// NewRuleSpecialist creates a specialist for one sector
func NewRuleSpecialist(key string, cfg model.SectorConfig, table rules.SectorRules) *RuleSpecialist {
	label := table.Label
	if label == "" {
		label = cfg.Name
	}
	if label == "" {
		label = "sector " + key
	}
	return &RuleSpecialist{
		label:  label,
		config: cfg,
		alerts: table.Alerts,
	}
}

// Analyze returns implications, recommendations and alerts for code.
// code is expected in normalized form.
func (s *RuleSpecialist) Analyze(code string, doc *model.Document) model.SectorOutput {
	return model.SectorOutput{
		Implications:    s.implications(),
		Recommendations: s.recommendations(),
		Alerts:          s.evaluateAlerts(code, doc),
	}
}

func (s *RuleSpecialist) implications() []string {
	var out []string
	if len(s.config.SpecificTaxes) > 0 {
		out = append(out, fmt.Sprintf("Pay attention to the specific taxes of %s: %s.",
			s.label, strings.Join(s.config.SpecificTaxes, ", ")))
	}
	out = append(out, s.config.Particularities...)

	if len(out) == 0 {
		return []string{DefaultImplication}
	}
	return out
}

func (s *RuleSpecialist) recommendations() []string {
	out := []string{ArchiveRecommendation}
	if len(s.config.RequiredDocuments) > 0 {
		out = append(out, fmt.Sprintf("Attach the following supporting documents: %s.",
			strings.Join(s.config.RequiredDocuments, ", ")))
	}
	return out
}

func (s *RuleSpecialist) evaluateAlerts(code string, doc *model.Document) []string {
	alerts := []string{}
	for _, rule := range s.alerts {
		alerts = append(alerts, Evaluate(rule, code, doc)...)
	}
	return alerts
}

// Evaluate returns the messages one rule emits for code and doc.
// Description matching is a plain substring test on the lowercased text.
func Evaluate(rule rules.AlertRule, code string, doc *model.Document) []string {
	if !codeMatches(rule, code) {
		return nil
	}
	if !rule.HasItemCondition() {
		return []string{rule.Message}
	}
	if doc == nil {
		return nil
	}

	var out []string
	for _, item := range doc.Items {
		if !itemMatches(rule, item) {
			continue
		}
		if !rule.PerItem {
			return []string{rule.Message}
		}
		out = append(out, strings.ReplaceAll(rule.Message, "{item}", item.Description))
	}
	return out
}

func codeMatches(rule rules.AlertRule, code string) bool {
	if len(rule.Codes) == 0 && len(rule.Prefixes) == 0 {
		return true
	}
	for _, c := range rule.Codes {
		if cfop.Normalize(c) == code {
			return true
		}
	}
	for _, p := range rule.Prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func itemMatches(rule rules.AlertRule, item model.LineItem) bool {
	if rule.ItemContains != "" &&
		!strings.Contains(strings.ToLower(item.Description), strings.ToLower(rule.ItemContains)) {
		return false
	}
	if rule.MissingProductCode && strings.TrimSpace(item.ProductCode) != "" {
		return false
	}
	return true
}

// Registry maps sector keys to specialists. Populate it before use;
// lookups are safe for concurrent readers once construction is done.
type Registry struct {
	specialists map[string]Specialist
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{specialists: make(map[string]Specialist)}
}

// Register adds or replaces the specialist for key
func (r *Registry) Register(key string, s Specialist) {
	r.specialists[key] = s
}

// Get returns the specialist for key
func (r *Registry) Get(key string) (Specialist, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.specialists[key]
	return s, ok
}

// Keys returns the registered sector keys, sorted
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.specialists))
	for k := range r.specialists {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildRegistry registers one RuleSpecialist per alert table and one without
// alerts for every configured sector that has no table. Tables for sectors
// absent from set get an empty configuration, so only the generic messages
// apply.
func BuildRegistry(set *rules.Set, tables map[string]rules.SectorRules) *Registry {
	reg := NewRegistry()
	for key, table := range tables {
		cfg, _ := set.Sector(key)
		reg.Register(key, NewRuleSpecialist(key, cfg, table))
	}
	for _, e := range set.Sectors() {
		if _, ok := tables[e.Key]; ok {
			continue
		}
		reg.Register(e.Key, NewRuleSpecialist(e.Key, e.Config, rules.SectorRules{}))
	}
	return reg
}
