package refdata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/fiscalia/internal/model"
)

// ErrNoEntries is returned when a fetched page yields no CFOP headings
var ErrNoEntries = errors.New("no CFOP entries found")

var defaultAuthority = NewAuthorityClassifier(nil, nil)

var csvHeader = []string{"cfop", "descricao", "tipo_operacao", "fonte", "data_extracao"}

// Crawl fetches the first reachable URL and parses its CFOP listing
func Crawl(ctx context.Context, f *Fetcher, urls []string, now time.Time) ([]model.ReferenceEntry, error) {
	page, err := f.FetchFirst(ctx, urls)
	if err != nil {
		return nil, err
	}

	text, err := ExtractText(page.HTML)
	if err != nil {
		return nil, err
	}

	entries := ParseEntries(text, now)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", page.URL, ErrNoEntries)
	}

	tier := defaultAuthority.Classify(page.URL)
	if tier != TierOfficial {
		label := defaultAuthority.SourceLabel(page.URL)
		for i := range entries {
			entries[i].Source = label
		}
		f.logger.Warn("reference data is not from an official source", "url", page.URL, "tier", tier.String())
	}

	f.logger.Info("reference data parsed", "url", page.URL, "entries", len(entries), "cached", page.FromCache)
	return entries, nil
}

// DefaultBaseName returns cfop_confaz_<YYYYmmdd_HHMMSS>
func DefaultBaseName(now time.Time) string {
	return "cfop_confaz_" + now.Format("20060102_150405")
}

// WriteCSV writes entries with a header row
func WriteCSV(w io.Writer, entries []model.ReferenceEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Code, e.Description, e.OperationType, e.Source, e.ExtractedAt}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes entries as an indented JSON array
func WriteJSON(w io.Writer, entries []model.ReferenceEntry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Save writes <dir>/<base>.csv and <dir>/<base>.json and returns both paths.
// An empty base uses DefaultBaseName(now).
func Save(dir, base string, entries []model.ReferenceEntry, now time.Time) (csvPath, jsonPath string, err error) {
	if len(entries) == 0 {
		return "", "", ErrNoEntries
	}
	if base == "" {
		base = DefaultBaseName(now)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output directory: %w", err)
	}

	csvPath = filepath.Join(dir, base+".csv")
	if err := writeTo(csvPath, func(w io.Writer) error { return WriteCSV(w, entries) }); err != nil {
		return "", "", err
	}

	jsonPath = filepath.Join(dir, base+".json")
	if err := writeTo(jsonPath, func(w io.Writer) error { return WriteJSON(w, entries) }); err != nil {
		return "", "", err
	}

	return csvPath, jsonPath, nil
}

func writeTo(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(path), cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Stats summarizes a fetched dataset
type Stats struct {
	Total  int
	ByType map[string]int
	First  []model.ReferenceEntry
	Last   []model.ReferenceEntry
}

// ComputeStats counts entries per operation type and keeps the first and
// last three entries
func ComputeStats(entries []model.ReferenceEntry) Stats {
	s := Stats{Total: len(entries), ByType: make(map[string]int)}
	for _, e := range entries {
		s.ByType[e.OperationType]++
	}

	n := min(3, len(entries))
	s.First = entries[:n]
	s.Last = entries[len(entries)-n:]
	return s
}

// WriteStats prints the statistics block
func WriteStats(w io.Writer, s Stats) {
	_, _ = fmt.Fprintf(w, "Unique CFOPs: %d\n", s.Total)
	for _, t := range []string{"Entrada", "Saída", "Outro"} {
		if n := s.ByType[t]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %-8s %d\n", t+":", n)
		}
	}
	if s.Total == 0 {
		return
	}

	_, _ = fmt.Fprintln(w, "\nFirst entries:")
	for _, e := range s.First {
		_, _ = fmt.Fprintf(w, "  %s - %s\n", e.Code, truncate(e.Description, 70))
	}
	_, _ = fmt.Fprintln(w, "\nLast entries:")
	for _, e := range s.Last {
		_, _ = fmt.Fprintf(w, "  %s - %s\n", e.Code, truncate(e.Description, 70))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
