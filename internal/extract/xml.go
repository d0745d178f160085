package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/ppiankov/fiscalia/internal/model"
)

// nfeInfo mirrors the parts of infNFe we read. encoding/xml matches
// unqualified tags in any namespace, so both the portalfiscal namespace and
// bare documents decode.
type nfeInfo struct {
	ID  string `xml:"Id,attr"`
	Ide struct {
		Number   string `xml:"nNF"`
		IssuedAt string `xml:"dhEmi"`
		IssuedOn string `xml:"dEmi"` // layout 2.0
	} `xml:"ide"`
	Emit struct {
		Name string `xml:"xNome"`
		CNPJ string `xml:"CNPJ"`
		CPF  string `xml:"CPF"`
		CNAE string `xml:"CNAE"`
	} `xml:"emit"`
	Dest struct {
		Name string `xml:"xNome"`
		CPF  string `xml:"CPF"`
		CNPJ string `xml:"CNPJ"`
	} `xml:"dest"`
	Total struct {
		Value string `xml:"vNF"`
	} `xml:"total>ICMSTot"`
	Items []struct {
		Number string `xml:"nItem,attr"`
		Prod   struct {
			Code        string `xml:"cProd"`
			Description string `xml:"xProd"`
			CFOP        string `xml:"CFOP"`
			Quantity    string `xml:"qCom"`
			UnitValue   string `xml:"vUnCom"`
			TotalValue  string `xml:"vProd"`
		} `xml:"prod"`
	} `xml:"det"`
}

// XMLExtractor reads NF-e XML files (nfeProc or bare NFe)
type XMLExtractor struct{}

// NewXMLExtractor creates an NF-e XML extractor
func NewXMLExtractor() *XMLExtractor {
	return &XMLExtractor{}
}

// Name returns the extractor name
func (e *XMLExtractor) Name() string {
	return "nfe-xml"
}

// Extensions returns the handled extensions
func (e *XMLExtractor) Extensions() []string {
	return []string{".xml"}
}

// Extract parses the NF-e at path
func (e *XMLExtractor) Extract(path string) (*model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ExtractionError{Source: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	doc, err := ParseNFe(f)
	if err != nil {
		return nil, &model.ExtractionError{Source: path, Err: err}
	}
	return doc, nil
}

// ParseNFe decodes the first infNFe element found in r
func ParseNFe(r io.Reader) (*model.Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel // ISO-8859-1 NF-e files exist

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("NF-e structure (infNFe) not found")
		}
		if err != nil {
			return nil, fmt.Errorf("parse XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "infNFe" {
			continue
		}

		var info nfeInfo
		if err := dec.DecodeElement(&info, &start); err != nil {
			return nil, fmt.Errorf("decode infNFe: %w", err)
		}
		return info.toDocument()
	}
}

func (n *nfeInfo) toDocument() (*model.Document, error) {
	total, err := parseDecimal("vNF", n.Total.Value)
	if err != nil {
		return nil, err
	}

	issued := n.Ide.IssuedAt
	if issued == "" {
		issued = n.Ide.IssuedOn
	}
	issuerID := n.Emit.CNPJ
	if issuerID == "" {
		issuerID = n.Emit.CPF
	}
	recipientID := n.Dest.CPF
	if recipientID == "" {
		recipientID = n.Dest.CNPJ
	}

	doc := &model.Document{
		Header: model.Header{
			AccessKey:          strings.TrimPrefix(strings.TrimSpace(n.ID), "NFe"),
			Number:             strings.TrimSpace(n.Ide.Number),
			IssueDate:          strings.TrimSpace(issued),
			TotalValue:         total,
			IssuerName:         strings.TrimSpace(n.Emit.Name),
			IssuerTaxID:        strings.TrimSpace(issuerID),
			IssuerIndustryCode: strings.TrimSpace(n.Emit.CNAE),
			RecipientName:      strings.TrimSpace(n.Dest.Name),
			RecipientTaxID:     strings.TrimSpace(recipientID),
		},
		Items: make([]model.LineItem, 0, len(n.Items)),
	}

	for _, det := range n.Items {
		item := model.LineItem{
			Number:      det.Number,
			ProductCode: strings.TrimSpace(det.Prod.Code),
			Description: strings.TrimSpace(det.Prod.Description),
			Code:        strings.TrimSpace(det.Prod.CFOP),
		}
		if item.Quantity, err = parseDecimal("qCom", det.Prod.Quantity); err != nil {
			return nil, err
		}
		if item.UnitValue, err = parseDecimal("vUnCom", det.Prod.UnitValue); err != nil {
			return nil, err
		}
		if item.TotalValue, err = parseDecimal("vProd", det.Prod.TotalValue); err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, item)
	}

	return doc, nil
}

// parseDecimal reads an NF-e decimal field; empty means zero
func parseDecimal(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", field, s)
	}
	return v, nil
}
