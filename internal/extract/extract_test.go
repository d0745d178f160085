package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fiscalia/internal/model"
)

func TestXMLExtractor_NFeProc(t *testing.T) {
	doc, err := NewXMLExtractor().Extract(filepath.Join("testdata", "nfe_agro.xml"))
	require.NoError(t, err)

	h := doc.Header
	assert.Equal(t, "35240312345678000199550010000012341000012345", h.AccessKey)
	assert.Equal(t, "1234", h.Number)
	assert.Equal(t, "2024-03-15T10:30:00-03:00", h.IssueDate)
	assert.InDelta(t, 121000.00, h.TotalValue, 0.001)
	assert.Equal(t, "Fazenda Boa Vista Ltda", h.IssuerName)
	assert.Equal(t, "12345678000199", h.IssuerTaxID)
	assert.Equal(t, "0115600", h.IssuerIndustryCode)
	assert.Equal(t, "Cerealista Central SA", h.RecipientName)
	assert.Equal(t, "98765432000155", h.RecipientTaxID)

	require.Len(t, doc.Items, 2)
	assert.Equal(t, model.LineItem{
		Number:      "1",
		ProductCode: "SOJA01",
		Description: "Soja em grão",
		Code:        "5101",
		Quantity:    1000,
		UnitValue:   120.5,
		TotalValue:  120500,
	}, doc.Items[0])
	assert.Empty(t, doc.Items[1].ProductCode)
	assert.Equal(t, "5.101", doc.Items[1].Code, "codes are kept as extracted")
	assert.Equal(t, "5101", doc.PrimaryCode())
}

func TestParseNFe_BareNoNamespace(t *testing.T) {
	doc, err := ParseNFe(strings.NewReader(`
<NFe><infNFe Id="NFe1">
  <ide><nNF>7</nNF><dEmi>2009-05-01</dEmi></ide>
  <emit><CPF>11122233344</CPF><xNome>Produtor</xNome></emit>
  <dest><CPF>55566677788</CPF><CNPJ>00394460005887</CNPJ></dest>
  <det nItem="1"><prod><xProd>Pneu 175/70</xProd><CFOP>5405</CFOP></prod></det>
</infNFe></NFe>`))
	require.NoError(t, err)

	assert.Equal(t, "1", doc.Header.AccessKey)
	assert.Equal(t, "2009-05-01", doc.Header.IssueDate, "dEmi is used when dhEmi is absent")
	assert.Equal(t, "11122233344", doc.Header.IssuerTaxID)
	assert.Equal(t, "55566677788", doc.Header.RecipientTaxID, "CPF wins over CNPJ for the recipient")
	assert.Zero(t, doc.Header.TotalValue)
	require.Len(t, doc.Items, 1)
	assert.Zero(t, doc.Items[0].Quantity)
}

func TestParseNFe_ISO88591(t *testing.T) {
	// "Agronegócio" with ó as a single Latin-1 byte
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><NFe><infNFe><emit><xNome>Agroneg\xf3cio</xNome></emit></infNFe></NFe>"
	doc, err := ParseNFe(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Agronegócio", doc.Header.IssuerName)
	assert.Empty(t, doc.Items)
	assert.NotNil(t, doc.Items)
}

func TestParseNFe_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no infNFe", `<root><other/></root>`, "infNFe"},
		{"malformed", `<NFe><infNFe>`, "XML"},
		{"bad number", `<NFe><infNFe><total><ICMSTot><vNF>12,50</vNF></ICMSTot></total></infNFe></NFe>`, "vNF"},
		{"bad item number", `<NFe><infNFe><det><prod><qCom>x</qCom></prod></det></infNFe></NFe>`, "qCom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNFe(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestXMLExtractor_WrapsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xml")
	require.NoError(t, os.WriteFile(path, []byte("not xml at all"), 0o644))

	_, err := NewXMLExtractor().Extract(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrExtraction))

	var extErr *model.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, path, extErr.Source)
}

func TestJSONExtractor(t *testing.T) {
	dir := t.TempDir()

	t.Run("document", func(t *testing.T) {
		path := filepath.Join(dir, "doc.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
  "cabecalho": {"numero_nf": "42", "emitente_cnae": "4530-7/03", "data_emissao": "2024-01-10"},
  "itens": [{"descricao": "Pneu aro 15", "cfop": "5405", "codigo_produto": ""}]
}`), 0o644))

		doc, err := NewJSONExtractor().Extract(path)
		require.NoError(t, err)
		assert.Equal(t, "42", doc.Header.Number)
		assert.Equal(t, "4530-7/03", doc.Header.IssuerIndustryCode)
		require.Len(t, doc.Items, 1)
		assert.Equal(t, "5405", doc.Items[0].Code)
	})

	t.Run("error payload", func(t *testing.T) {
		path := filepath.Join(dir, "err.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"erro": "Estrutura do XML da NF-e não encontrada."}`), 0o644))

		_, err := NewJSONExtractor().Extract(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrExtraction))
		assert.Contains(t, err.Error(), "não encontrada")
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

		_, err := NewJSONExtractor().Extract(path)
		assert.True(t, errors.Is(err, model.ErrExtraction))
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{".json", ".xml"}, r.Extensions())
	assert.True(t, r.Supports("a/b/NOTA.XML"))
	assert.True(t, r.Supports("x.json"))
	assert.False(t, r.Supports("danfe.pdf"))
	assert.False(t, r.Supports("README"))

	e, ok := r.Find("nota.Xml")
	require.True(t, ok)
	assert.Equal(t, "nfe-xml", e.Name())

	_, err := r.Extract("danfe.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnsupportedFormat))
	assert.True(t, errors.Is(err, model.ErrExtraction))
}

type fakeExtractor struct{}

func (fakeExtractor) Name() string { return "fake" }

func (fakeExtractor) Extensions() []string { return []string{".TXT"} }

func (fakeExtractor) Extract(string) (*model.Document, error) { return &model.Document{}, nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeExtractor{})

	doc, err := r.Extract("notes.txt")
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
