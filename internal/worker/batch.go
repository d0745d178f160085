package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ppiankov/fiscalia/internal/archive"
	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/model"
)

// SummaryFileName is the batch report name. ListInputs never returns it.
const SummaryFileName = "batch_summary.json"

// errNotProcessed is reported for files the batch never reached
var errNotProcessed = errors.New("file was not processed")

// DocumentExtractor turns an input file into a document
type DocumentExtractor interface {
	Supports(path string) bool
	Extract(path string) (*model.Document, error)
}

// DocumentProcessor classifies a document
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc *model.Document) (*model.ClassificationResult, error)
	Summarize(ctx context.Context, result *model.ClassificationResult)
}

// DocumentJob extracts, classifies and archives one file
type DocumentJob struct {
	Path      string
	Extractor DocumentExtractor
	Processor DocumentProcessor
	Archiver  *archive.Archiver
	Summarize bool
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	outcome := model.FileOutcome{File: j.Path}
	fail := func(err error) Result {
		outcome.Error = err.Error()
		outcome.ProcessedAt = time.Now()
		return &DocumentResult{Outcome: outcome, Error: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	doc, err := j.Extractor.Extract(j.Path)
	if err != nil {
		return fail(err)
	}
	outcome.Document = doc

	result, err := j.Processor.ProcessDocument(ctx, doc)
	if err != nil {
		return fail(err)
	}
	if j.Summarize {
		j.Processor.Summarize(ctx, result)
	}
	outcome.Result = result

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	dst, err := j.Archiver.Archive(j.Path, result.DetectedSectorName, doc.Header.IssueDate)
	if err != nil {
		return fail(fmt.Errorf("archive: %w", err))
	}
	outcome.Destination = dst
	outcome.ProcessedAt = time.Now()

	return &DocumentResult{Outcome: outcome}
}

// DocumentResult represents the result of a document job
type DocumentResult struct {
	Outcome model.FileOutcome
	Error   error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor processes a folder of documents concurrently
type BatchProcessor struct {
	extractor   DocumentExtractor
	processor   DocumentProcessor
	archiver    *archive.Archiver
	concurrency int
	summarize   bool
	progress    func(model.FileOutcome)
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor. A concurrency of 1
// processes files strictly one after another.
func NewBatchProcessor(extractor DocumentExtractor, processor DocumentProcessor, archiver *archive.Archiver, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		processor:   processor,
		archiver:    archiver,
		concurrency: concurrency,
		logger:      logging.New("batch"),
	}
}

// SetProgress registers a callback invoked once per finished file
func (b *BatchProcessor) SetProgress(fn func(model.FileOutcome)) {
	b.progress = fn
}

// SetSummarize enables the LLM summary for every classified document
func (b *BatchProcessor) SetSummarize(enabled bool) {
	b.summarize = enabled
}

// ListInputs returns the regular files in dir that extractor supports,
// sorted by name. Subdirectories and a previous batch report are skipped.
func ListInputs(dir string, extractor DocumentExtractor) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || entry.Name() == SummaryFileName {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if extractor.Supports(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)

	return files, nil
}

// ProcessDir classifies every supported file in inputDir and copies each
// success into the archive. Failures are isolated per file and leave the
// source in place. When ctx ends early, files without an outcome are
// counted as failures carrying the context error.
func (b *BatchProcessor) ProcessDir(ctx context.Context, inputDir string) (*model.BatchSummary, error) {
	files, err := ListInputs(inputDir, b.extractor)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	summary := &model.BatchSummary{
		Total:      len(files),
		OutputPath: b.archiver.Root(),
		Files:      make([]model.FileOutcome, 0, len(files)),
	}
	if len(files) == 0 {
		return summary, nil
	}

	b.logger.Info("batch started", "input", inputDir, "files", len(files), "workers", b.concurrency)

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	go func() {
		defer pool.Close()
		for _, path := range files {
			job := &DocumentJob{
				Path:      path,
				Extractor: b.extractor,
				Processor: b.processor,
				Archiver:  b.archiver,
				Summarize: b.summarize,
			}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	seen := make(map[string]bool, len(files))
	for result := range pool.Results() {
		outcome := outcomeOf(result)
		seen[outcome.File] = true
		b.record(summary, outcome)
	}

	for _, path := range files {
		if seen[path] {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = errNotProcessed
		}
		b.record(summary, model.FileOutcome{File: path, Error: cause.Error(), ProcessedAt: time.Now()})
	}

	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].File < summary.Files[j].File
	})

	b.logger.Info("batch finished",
		"success", summary.Success,
		"failures", summary.Failures,
		"total", summary.Total,
	)

	return summary, nil
}

func (b *BatchProcessor) record(summary *model.BatchSummary, outcome model.FileOutcome) {
	if outcome.Error != "" {
		summary.Failures++
		b.logger.Warn("file failed", "file", outcome.File, "error", outcome.Error)
	} else {
		summary.Success++
		b.logger.Debug("file archived", "file", outcome.File, "destination", outcome.Destination)
	}
	summary.Files = append(summary.Files, outcome)

	if b.progress != nil {
		b.progress(outcome)
	}
}

// outcomeOf converts a pool result, including a recovered panic, into a
// file outcome
func outcomeOf(result Result) model.FileOutcome {
	if dr, ok := result.(*DocumentResult); ok {
		return dr.Outcome
	}

	outcome := model.FileOutcome{ProcessedAt: time.Now()}
	if job, ok := FailedJob(result); ok {
		if dj, ok := job.(*DocumentJob); ok {
			outcome.File = dj.Path
		}
	}
	if err := result.GetError(); err != nil {
		outcome.Error = err.Error()
	} else {
		outcome.Error = "unexpected job result"
	}
	return outcome
}
