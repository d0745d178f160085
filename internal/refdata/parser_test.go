package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

const confazPage = `<html><head><title>CFOP</title><script>var x = "9.999 - not a code";</script></head>
<body>
<div id="menu">Início</div>
<div class="texto">
<p>1.000 - ENTRADAS OU AQUISIÇÕES DE SERVIÇOS DO ESTADO</p>
<p>1.101 - Compra para industrialização ou produção rural
Redação anterior dada ao item 1.101 pelo Ajuste SINIEF 05/05.
Classificam-se neste código as compras de mercadorias a serem utilizadas em processo de industrialização.</p>
<p>5.101 – Venda de produção do estabelecimento</p>
<p>5.101 — Venda de produção do estabelecimento, inclusive de produtor rural</p>
<p>5.405 - Venda de mercadoria adquirida ou recebida de terceiros em operação com mercadoria sujeita ao regime de substituição tributária</p>
<p>6.102 - Venda de mercadoria adquirida ou recebida de terceiros</p>
<p>7.949 - Outra saída de mercadoria ou prestação de serviço não especificado</p>
<p>Filler text so the container is picked over the body. Filler text so the container is picked over the body.
Filler text so the container is picked over the body. Filler text so the container is picked over the body.</p>
</div>
</body></html>`

func TestExtractText_PrefersContentContainer(t *testing.T) {
	text, err := ExtractText(confazPage)
	require.NoError(t, err)

	assert.NotContains(t, text, "Início", "text outside the container is ignored")
	assert.NotContains(t, text, "9.999", "script content is skipped")
	assert.Contains(t, text, "1.101 - Compra para industrialização")
}

func TestExtractText_FallsBackToBody(t *testing.T) {
	text, err := ExtractText(`<html><body><div class="texto">short</div><p>5.102 - Venda</p></body></html>`)
	require.NoError(t, err)
	assert.Contains(t, text, "short")
	assert.Contains(t, text, "5.102 - Venda")
}

func TestParseEntries(t *testing.T) {
	text, err := ExtractText(confazPage)
	require.NoError(t, err)

	entries := ParseEntries(text, fixedNow)
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{"1.000", "1.101", "5.101", "5.405", "6.102", "7.949"}, codes)

	byCode := make(map[string]model.ReferenceEntry)
	for _, e := range entries {
		byCode[e.Code] = e
	}

	assert.Equal(t, "Compra para industrialização ou produção rural", byCode["1.101"].Description,
		"editorial notes are removed")
	assert.Equal(t, "Venda de produção do estabelecimento, inclusive de produtor rural", byCode["5.101"].Description,
		"the longer duplicate wins")

	assert.Equal(t, "Entrada", byCode["1.000"].OperationType)
	assert.Equal(t, "Saída", byCode["6.102"].OperationType)
	assert.Equal(t, SourceName, byCode["5.405"].Source)
	assert.Equal(t, "2024-03-15 10:30:00", byCode["5.405"].ExtractedAt)
}

func TestParseEntries_NoHeadings(t *testing.T) {
	entries := ParseEntries("nothing to see here 5101", fixedNow)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Venda   de\n produção  ", "Venda de produção"},
		{"Compra Redação anterior ... Classificam-se neste código as compras", "Compra"},
		{"Compra REDAÇÃO anterior dada pelo Ajuste", "Compra"},
		{"Devolução Classificam-se neste código as devoluções 5.202 resto", "Devolução 5.202 resto"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDescription(tt.in))
		})
	}
}

func TestSave_RoundTripsThroughTable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	text, err := ExtractText(confazPage)
	require.NoError(t, err)
	entries := ParseEntries(text, fixedNow)

	csvPath, jsonPath, err := Save(dir, "", entries, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cfop_confaz_20240315_103000.csv"), csvPath)
	assert.Equal(t, filepath.Join(dir, "cfop_confaz_20240315_103000.json"), jsonPath)

	for _, path := range []string{csvPath, jsonPath} {
		table, err := cfop.Load(path)
		require.NoError(t, err, path)
		assert.Equal(t, len(entries), table.Len())

		e, ok := table.Lookup("5101")
		require.True(t, ok)
		assert.Equal(t, "Saída", e.OperationType)
		assert.Equal(t, "CONFAZ", e.Source)
	}

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "produção", "non-ASCII text is written as UTF-8")
	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "1.000", decoded[0]["cfop"])

	head, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(head), "cfop,descricao,tipo_operacao,fonte,data_extracao\n"))
}

func TestSave_NoEntries(t *testing.T) {
	_, _, err := Save(t.TempDir(), "x", nil, fixedNow)
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestStats(t *testing.T) {
	text, err := ExtractText(confazPage)
	require.NoError(t, err)
	stats := ComputeStats(ParseEntries(text, fixedNow))

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, map[string]int{"Entrada": 2, "Saída": 4}, stats.ByType)
	require.Len(t, stats.First, 3)
	require.Len(t, stats.Last, 3)
	assert.Equal(t, "1.000", stats.First[0].Code)
	assert.Equal(t, "7.949", stats.Last[2].Code)

	var buf bytes.Buffer
	WriteStats(&buf, stats)
	out := buf.String()
	assert.Contains(t, out, "Unique CFOPs: 6")
	assert.Contains(t, out, "Saída:")
	assert.Contains(t, out, "...", "long descriptions are truncated")

	small := ComputeStats([]model.ReferenceEntry{{Code: "5.101", OperationType: "Saída"}})
	assert.Len(t, small.First, 1)
	assert.Len(t, small.Last, 1)

	empty := ComputeStats(nil)
	assert.Zero(t, empty.Total)
	buf.Reset()
	WriteStats(&buf, empty)
	assert.Equal(t, "Unique CFOPs: 0\n", buf.String())
}

func TestCrawl(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vazio" {
			_, _ = fmt.Fprint(w, "<html><body>sem tabela</body></html>")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, confazPage)
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), Options{})

	entries, err := Crawl(context.Background(), fetcher, []string{server.URL + "/cfop"}, fixedNow)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
	assert.Equal(t, "127.0.0.1", entries[0].Source, "unofficial sources are labeled by host")

	_, err = Crawl(context.Background(), fetcher, []string{server.URL + "/vazio"}, fixedNow)
	assert.ErrorIs(t, err, ErrNoEntries)
}
