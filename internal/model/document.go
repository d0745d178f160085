package model

import "strings"

// Document is a fiscal document (NF-e) as produced by an extractor.
// The classification core treats it as read-only input.
type Document struct {
	Header Header     `json:"cabecalho" yaml:"cabecalho"`
	Items  []LineItem `json:"itens" yaml:"itens"`
}

// Header carries the document-level fields of an NF-e
type Header struct {
	AccessKey          string  `json:"chave_acesso,omitempty" yaml:"chave_acesso,omitempty"`
	Number             string  `json:"numero_nf,omitempty" yaml:"numero_nf,omitempty"`
	IssueDate          string  `json:"data_emissao,omitempty" yaml:"data_emissao,omitempty"` // Raw dhEmi/dEmi value
	TotalValue         float64 `json:"valor_total" yaml:"valor_total"`
	IssuerName         string  `json:"emitente_nome,omitempty" yaml:"emitente_nome,omitempty"`
	IssuerTaxID        string  `json:"emitente_cnpj,omitempty" yaml:"emitente_cnpj,omitempty"`
	IssuerIndustryCode string  `json:"emitente_cnae,omitempty" yaml:"emitente_cnae,omitempty"` // CNAE, drives sector inference
	RecipientName      string  `json:"destinatario_nome,omitempty" yaml:"destinatario_nome,omitempty"`
	RecipientTaxID     string  `json:"destinatario_cpf_cnpj,omitempty" yaml:"destinatario_cpf_cnpj,omitempty"`
}

// LineItem is a single product or service line (det/prod)
type LineItem struct {
	Number      string  `json:"numero_item,omitempty" yaml:"numero_item,omitempty"`
	ProductCode string  `json:"codigo_produto,omitempty" yaml:"codigo_produto,omitempty"`
	Description string  `json:"descricao" yaml:"descricao"`
	Code        string  `json:"cfop" yaml:"cfop"` // Raw CFOP as extracted, not normalized
	Quantity    float64 `json:"quantidade,omitempty" yaml:"quantidade,omitempty"`
	UnitValue   float64 `json:"valor_unitario,omitempty" yaml:"valor_unitario,omitempty"`
	TotalValue  float64 `json:"valor_produto,omitempty" yaml:"valor_produto,omitempty"`
}

// PrimaryCode returns the raw operation code of the first line item,
// or "" when the document has no items or the first item carries no code.
func (d *Document) PrimaryCode() string {
	if d == nil || len(d.Items) == 0 {
		return ""
	}
	return strings.TrimSpace(d.Items[0].Code)
}
