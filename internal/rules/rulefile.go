package rules

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fiscalia/internal/model"
)

// AlertRule is one declarative sector alert: when the code and item
// conditions hold, Message is emitted.
//
// Code conditions: the code is in Codes or starts with one of Prefixes.
// With neither set, every code matches. Item conditions: an item whose
// lowercased description contains ItemContains and, when
// MissingProductCode is set, has no product code. With no item condition
// set the rule does not look at items. PerItem emits one message per
// matching item, replacing {item} with the item description.
type AlertRule struct {
	Codes              []string `yaml:"cfops,omitempty"`
	Prefixes           []string `yaml:"prefixos,omitempty"`
	ItemContains       string   `yaml:"item_contem,omitempty"`
	MissingProductCode bool     `yaml:"sem_codigo_produto,omitempty"`
	PerItem            bool     `yaml:"por_item,omitempty"`
	Message            string   `yaml:"mensagem"`
}

// HasItemCondition reports whether the rule inspects line items
func (r AlertRule) HasItemCondition() bool {
	return r.ItemContains != "" || r.MissingProductCode
}

// SectorRules is the alert table of one sector
type SectorRules struct {
	Label  string      `yaml:"rotulo,omitempty"` // Used in the specific-taxes sentence
	Alerts []AlertRule `yaml:"alertas"`
}

// LegalUpdate maps one code to time-sensitive alerts
type LegalUpdate struct {
	Code   string   `yaml:"cfop"`
	Alerts []string `yaml:"alertas"`
}

// Header fields a RegimeRule can test
const (
	FieldRecipientTaxID     = "destinatario_cpf_cnpj"
	FieldIssuerIndustryCode = "emitente_cnae"
)

// RegimeRule detects a special regime from a header field prefix
type RegimeRule struct {
	Name         string   `yaml:"nome"`
	Field        string   `yaml:"campo"`
	Prefix       string   `yaml:"prefixo"`
	Alerts       []string `yaml:"alertas,omitempty"`
	Implications []string `yaml:"implicacoes,omitempty"`
}

// RuleFile overrides the built-in alert, regime and legal-update tables.
// Sections left out keep their defaults.
type RuleFile struct {
	Sectors      map[string]SectorRules `yaml:"ramos,omitempty"`
	Regimes      []RegimeRule           `yaml:"regimes_especiais,omitempty"`
	LegalUpdates []LegalUpdate          `yaml:"atualizacoes_legais,omitempty"`
}

// LoadRuleFile reads an optional rule override file.
// A missing file is not an error and yields an empty RuleFile.
func LoadRuleFile(path string) (*RuleFile, error) {
	rf := &RuleFile{}
	if path == "" {
		return rf, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rf, nil
	}
	if err != nil {
		return rf, &model.ConfigError{Path: path, Err: err}
	}

	if err := yaml.Unmarshal(data, rf); err != nil {
		return &RuleFile{}, &model.ConfigError{Path: path, Err: err}
	}

	return rf, nil
}
