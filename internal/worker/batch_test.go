package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/fiscalia/internal/archive"
	"github.com/ppiankov/fiscalia/internal/extract"
	"github.com/ppiankov/fiscalia/internal/model"
)

// MockProcessor implements DocumentProcessor
type MockProcessor struct {
	Sector     string
	PanicOn    string // Document number that makes ProcessDocument panic
	calls      atomic.Int32
	summarized atomic.Int32
	mu         sync.Mutex
	order      []string
}

func (m *MockProcessor) ProcessDocument(ctx context.Context, doc *model.Document) (*model.ClassificationResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.order = append(m.order, doc.Header.Number)
	m.mu.Unlock()

	if m.PanicOn != "" && doc.Header.Number == m.PanicOn {
		panic("boom")
	}
	if doc.PrimaryCode() == "" {
		return nil, &model.ExtractionError{Err: model.ErrNoOperationCode}
	}
	return &model.ClassificationResult{
		Code:               "5.101",
		DetectedSectorName: m.Sector,
	}, nil
}

func (m *MockProcessor) Summarize(ctx context.Context, result *model.ClassificationResult) {
	m.summarized.Add(1)
}

const goodDoc = `{"cabecalho": {"numero_nf": "%s", "data_emissao": "2024-03-15T10:30:00-03:00"}, "itens": [{"descricao": "Soja", "cfop": "5101"}]}`

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func docWithNumber(n string) string {
	return fmt.Sprintf(goodDoc, n)
}

func TestBatchProcessor_ProcessDir(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	writeDoc(t, in, "a.json", docWithNumber("1"))
	writeDoc(t, in, "b.json", docWithNumber("2"))
	bad := writeDoc(t, in, "c.xml", "this is not an NF-e")
	writeDoc(t, in, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(in, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	processor := &MockProcessor{Sector: "Agronegócio"}
	batch := NewBatchProcessor(extract.NewRegistry(), processor, archive.NewArchiver(out), 2)

	var progressCalls atomic.Int32
	batch.SetProgress(func(model.FileOutcome) { progressCalls.Add(1) })

	summary, err := batch.ProcessDir(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}

	if summary.Success != 2 || summary.Failures != 1 || summary.Total != 3 {
		t.Errorf("expected {2,1,3}, got {%d,%d,%d}", summary.Success, summary.Failures, summary.Total)
	}
	if summary.OutputPath != out {
		t.Errorf("expected output path %s, got %s", out, summary.OutputPath)
	}
	if progressCalls.Load() != 3 {
		t.Errorf("expected 3 progress calls, got %d", progressCalls.Load())
	}
	if processor.summarized.Load() != 0 {
		t.Error("summaries should be off by default")
	}

	if _, err := os.Stat(bad); err != nil {
		t.Errorf("failed file should stay in place: %v", err)
	}
	for _, name := range []string{"a.json", "b.json"} {
		if _, err := os.Stat(filepath.Join(in, name)); err != nil {
			t.Errorf("source %s should not be moved: %v", name, err)
		}
		dst := filepath.Join(out, "Agronegócio", "2024-03", name)
		if _, err := os.Stat(dst); err != nil {
			t.Errorf("expected archived copy at %s: %v", dst, err)
		}
	}

	if len(summary.Files) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(summary.Files))
	}
	last := summary.Files[2]
	if last.File != bad || last.Error == "" || last.Destination != "" {
		t.Errorf("unexpected outcome for bad file: %+v", last)
	}
}

func TestBatchProcessor_MissingCodeIsFailure(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeDoc(t, in, "empty.json", `{"cabecalho": {"numero_nf": "9"}, "itens": []}`)

	batch := NewBatchProcessor(extract.NewRegistry(), &MockProcessor{Sector: "Comércio"}, archive.NewArchiver(out), 1)
	summary, err := batch.ProcessDir(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}

	if summary.Failures != 1 || summary.Success != 0 {
		t.Errorf("expected a single failure, got %+v", summary)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("nothing should be archived, found %d entries", len(entries))
	}
}

func TestBatchProcessor_PanicIsIsolated(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeDoc(t, in, "ok.json", docWithNumber("1"))
	crash := writeDoc(t, in, "crash.json", docWithNumber("666"))

	batch := NewBatchProcessor(extract.NewRegistry(), &MockProcessor{Sector: "Indústria", PanicOn: "666"}, archive.NewArchiver(out), 2)
	summary, err := batch.ProcessDir(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}

	if summary.Success != 1 || summary.Failures != 1 {
		t.Fatalf("expected one success and one failure, got %+v", summary)
	}
	for _, o := range summary.Files {
		if o.File == crash {
			if !strings.Contains(o.Error, "panicked") {
				t.Errorf("expected panic error, got %q", o.Error)
			}
			return
		}
	}
	t.Error("panicking file has no outcome")
}

func TestBatchProcessor_SequentialOrder(t *testing.T) {
	in := t.TempDir()
	for _, n := range []string{"3", "1", "2"} {
		writeDoc(t, in, "nf"+n+".json", docWithNumber(n))
	}

	processor := &MockProcessor{Sector: "Serviços"}
	batch := NewBatchProcessor(extract.NewRegistry(), processor, archive.NewArchiver(t.TempDir()), 1)
	batch.SetSummarize(true)

	if _, err := batch.ProcessDir(context.Background(), in); err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}

	if got := strings.Join(processor.order, ","); got != "1,2,3" {
		t.Errorf("expected files in name order, got %s", got)
	}
	if processor.summarized.Load() != 3 {
		t.Errorf("expected 3 summaries, got %d", processor.summarized.Load())
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	in := t.TempDir()
	for _, n := range []string{"1", "2", "3"} {
		writeDoc(t, in, "nf"+n+".json", docWithNumber(n))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := &MockProcessor{Sector: "Comércio"}
	batch := NewBatchProcessor(extract.NewRegistry(), processor, archive.NewArchiver(t.TempDir()), 2)
	summary, err := batch.ProcessDir(ctx, in)
	if err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}

	if summary.Total != 3 || summary.Failures != 3 {
		t.Errorf("expected every file to fail, got %+v", summary)
	}
	for _, o := range summary.Files {
		if !strings.Contains(o.Error, context.Canceled.Error()) {
			t.Errorf("expected context error for %s, got %q", o.File, o.Error)
		}
	}
	if processor.calls.Load() != 0 {
		t.Errorf("no document should be classified, got %d", processor.calls.Load())
	}
}

// cancelingProcessor ends the batch while a document is being classified
type cancelingProcessor struct {
	MockProcessor
	cancel context.CancelFunc
}

func (c *cancelingProcessor) ProcessDocument(ctx context.Context, doc *model.Document) (*model.ClassificationResult, error) {
	c.cancel()
	return c.MockProcessor.ProcessDocument(ctx, doc)
}

func TestBatchProcessor_CancelledMidJob(t *testing.T) {
	for i := 0; i < 20; i++ {
		in := t.TempDir()
		out := t.TempDir()
		writeDoc(t, in, "nf.json", docWithNumber("1"))

		ctx, cancel := context.WithCancel(context.Background())
		processor := &cancelingProcessor{MockProcessor: MockProcessor{Sector: "Comércio"}, cancel: cancel}
		batch := NewBatchProcessor(extract.NewRegistry(), processor, archive.NewArchiver(out), 1)

		summary, err := batch.ProcessDir(ctx, in)
		cancel()
		if err != nil {
			t.Fatalf("ProcessDir failed: %v", err)
		}

		_, statErr := os.Stat(filepath.Join(out, "Comércio", "2024-03", "nf.json"))
		archived := statErr == nil
		if summary.Total != 1 || summary.Success+summary.Failures != 1 {
			t.Fatalf("unexpected counts: %+v", summary)
		}
		if archived != (summary.Success == 1) {
			t.Fatalf("summary disagrees with output tree: success=%d archived=%v outcome=%+v",
				summary.Success, archived, summary.Files[0])
		}
		if summary.Failures != 1 || !strings.Contains(summary.Files[0].Error, context.Canceled.Error()) {
			t.Errorf("expected a cancelled failure, got %+v", summary.Files[0])
		}
	}
}

func TestListInputs_SkipsBatchReport(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.json", docWithNumber("1"))
	writeDoc(t, dir, SummaryFileName, `{"total": 1}`)

	files, err := ListInputs(dir, extract.NewRegistry())
	if err != nil {
		t.Fatalf("ListInputs failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a.json" {
		t.Errorf("expected only a.json, got %v", files)
	}
}

func TestBatchProcessor_EmptyAndMissingDir(t *testing.T) {
	batch := NewBatchProcessor(extract.NewRegistry(), &MockProcessor{}, archive.NewArchiver(t.TempDir()), 2)

	summary, err := batch.ProcessDir(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("empty dir should not fail: %v", err)
	}
	if summary.Total != 0 || len(summary.Files) != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}

	_, err = batch.ProcessDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing dir")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestDocumentResult_GetError(t *testing.T) {
	res := &DocumentResult{Error: errors.New("test")}
	if res.GetError() == nil {
		t.Error("expected error")
	}

	res2 := &DocumentResult{}
	if res2.GetError() != nil {
		t.Error("expected nil error")
	}
}
