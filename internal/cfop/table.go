package cfop

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/fiscalia/internal/model"
)

// Accepted column names per field, Portuguese first
var fieldAliases = map[string][]string{
	"code":        {"cfop", "code"},
	"description": {"descricao", "description"},
	"type":        {"tipo_operacao", "operation_type"},
	"source":      {"fonte", "source"},
	"extracted":   {"data_extracao", "extraction_timestamp"},
}

// Table is an immutable index of reference entries keyed by normalized code
type Table struct {
	entries map[string]model.ReferenceEntry
}

// NewTable builds a table from entries. Codes are normalized and, on
// duplicates, the entry with the longer description is kept.
func NewTable(entries ...model.ReferenceEntry) *Table {
	t := &Table{entries: make(map[string]model.ReferenceEntry, len(entries))}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

func (t *Table) add(e model.ReferenceEntry) {
	e.Code = Normalize(strings.TrimSpace(e.Code))
	if e.Code == "" {
		return
	}
	if existing, ok := t.entries[e.Code]; ok && len(existing.Description) >= len(e.Description) {
		return
	}
	t.entries[e.Code] = e
}

// Load reads a reference dataset, choosing the parser by file extension
func Load(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".json" {
		return nil, fmt.Errorf("load reference %s: %w", path, model.ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer func() { _ = f.Close() }()

	if ext == ".csv" {
		return LoadCSV(f)
	}
	return LoadJSON(f)
}

// LoadCSV reads a header-first CSV dataset
func LoadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff") // Excel-style BOM
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	index := make(map[string]int, len(fieldAliases))
	for field, aliases := range fieldAliases {
		index[field] = -1
		for _, alias := range aliases {
			if i, ok := columns[alias]; ok {
				index[field] = i
				break
			}
		}
	}
	if index["code"] < 0 {
		return nil, errors.New("reference dataset has no cfop/code column")
	}

	cell := func(row []string, field string) string {
		i := index[field]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	t := NewTable()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		t.add(model.ReferenceEntry{
			Code:          cell(row, "code"),
			Description:   cell(row, "description"),
			OperationType: cell(row, "type"),
			Source:        cell(row, "source"),
			ExtractedAt:   cell(row, "extracted"),
		})
	}

	return t, nil
}

// LoadJSON reads either an array of objects or an object of columns, each
// column a list or an object keyed by row index. Codes may be strings or
// numbers.
func LoadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode reference: %w", err)
	}
	rows, err := jsonRows(doc)
	if err != nil {
		return nil, fmt.Errorf("decode reference: %w", err)
	}

	t := NewTable()
	for i, row := range rows {
		code := jsonField(row, "code")
		if code == "" {
			return nil, fmt.Errorf("reference entry %d has no cfop/code field", i)
		}
		t.add(model.ReferenceEntry{
			Code:          code,
			Description:   jsonField(row, "description"),
			OperationType: jsonField(row, "type"),
			Source:        jsonField(row, "source"),
			ExtractedAt:   jsonField(row, "extracted"),
		})
	}

	return t, nil
}

func jsonRows(doc any) ([]map[string]any, error) {
	switch v := doc.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("entry %d is not an object", i)
			}
			rows = append(rows, row)
		}
		return rows, nil
	case map[string]any:
		return columnRows(v)
	default:
		return nil, errors.New("expected an array of entries or an object of columns")
	}
}

// columnRows turns {"cfop": [...], "descricao": [...]} into rows. Columns
// given as objects are aligned by their index keys.
func columnRows(columns map[string]any) ([]map[string]any, error) {
	byIndex := make(map[string]map[string]any)
	for name, col := range columns {
		switch c := col.(type) {
		case []any:
			for i, v := range c {
				setCell(byIndex, strconv.Itoa(i), name, v)
			}
		case map[string]any:
			for idx, v := range c {
				setCell(byIndex, idx, name, v)
			}
		default:
			return nil, fmt.Errorf("column %q is not a list", name)
		}
	}

	indexes := make([]string, 0, len(byIndex))
	for idx := range byIndex {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool {
		a, errA := strconv.Atoi(indexes[i])
		b, errB := strconv.Atoi(indexes[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return indexes[i] < indexes[j]
	})

	rows := make([]map[string]any, 0, len(indexes))
	for _, idx := range indexes {
		rows = append(rows, byIndex[idx])
	}
	return rows, nil
}

func setCell(byIndex map[string]map[string]any, idx, column string, v any) {
	row, ok := byIndex[idx]
	if !ok {
		row = make(map[string]any)
		byIndex[idx] = row
	}
	row[column] = v
}

func jsonField(row map[string]any, field string) string {
	for _, alias := range fieldAliases[field] {
		v, ok := row[alias]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val)
		case json.Number:
			return val.String()
		default:
			return strings.TrimSpace(fmt.Sprint(val))
		}
	}
	return ""
}

// Lookup normalizes code and returns its entry
func (t *Table) Lookup(code string) (model.ReferenceEntry, bool) {
	if t == nil {
		return model.ReferenceEntry{}, false
	}
	e, ok := t.entries[Normalize(strings.TrimSpace(code))]
	return e, ok
}

// Len returns the number of distinct codes
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of all entries sorted by numeric code
func (t *Table) Entries() []model.ReferenceEntry {
	if t == nil {
		return nil
	}
	out := make([]model.ReferenceEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by the numeric value of their code
func SortEntries(entries []model.ReferenceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, aErr := strconv.Atoi(strings.ReplaceAll(entries[i].Code, ".", ""))
		b, bErr := strconv.Atoi(strings.ReplaceAll(entries[j].Code, ".", ""))
		if aErr != nil || bErr != nil {
			return entries[i].Code < entries[j].Code
		}
		return a < b
	})
}
