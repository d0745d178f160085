package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/fiscalia/internal/model"
)

// ErrNotFound is returned when no record matches
var ErrNotFound = errors.New("record not found")

// Record is one persisted classification
type Record struct {
	CreatedAt     time.Time
	Result        *model.ClassificationResult
	ID            string
	RunID         string
	File          string
	DocumentKey   string // NF-e access key, or the document number when absent
	Code          string
	SectorKey     string
	SectorName    string
	CostCenter    string
	DocumentType  string
	SpecialRegime string
	AlertCount    int
}

// NewRecord builds a record for a classified document
func NewRecord(runID, file string, doc *model.Document, result *model.ClassificationResult) *Record {
	rec := &Record{
		RunID:         runID,
		File:          file,
		Result:        result,
		Code:          result.Code,
		SectorKey:     result.SectorKey,
		SectorName:    result.DetectedSectorName,
		CostCenter:    result.CostCenter,
		DocumentType:  result.DocumentType,
		SpecialRegime: result.SpecialRegime,
		AlertCount:    len(result.SpecificAlerts),
	}
	if doc != nil {
		rec.DocumentKey = doc.Header.AccessKey
		if rec.DocumentKey == "" {
			rec.DocumentKey = doc.Header.Number
		}
	}
	return rec
}

// NewRunID returns an identifier grouping the records of one command run
func NewRunID() string {
	return uuid.NewString()
}

// Save inserts rec, assigning an ID and timestamp when unset
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Result == nil {
		return errors.New("record has no classification result")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO classifications (
			id, run_id, file, document_key, cfop, sector_key, sector_name,
			cost_center, document_type, special_regime, alert_count,
			result_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.RunID,
		rec.File,
		rec.DocumentKey,
		rec.Code,
		rec.SectorKey,
		rec.SectorName,
		rec.CostCenter,
		rec.DocumentType,
		rec.SpecialRegime,
		rec.AlertCount,
		string(payload),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	return nil
}

const selectColumns = `
	SELECT id, run_id, file, document_key, cfop, sector_key, sector_name,
		cost_center, document_type, special_regime, alert_count,
		result_json, created_at
	FROM classifications`

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// ByDocument returns the records of one document key, newest first
func (s *Store) ByDocument(ctx context.Context, documentKey string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE document_key = ?
		ORDER BY created_at DESC, rowid DESC`, documentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("document %q: %w", documentKey, ErrNotFound)
	}
	return records, nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec     Record
			docKey  sql.NullString
			payload string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.File,
			&docKey,
			&rec.Code,
			&rec.SectorKey,
			&rec.SectorName,
			&rec.CostCenter,
			&rec.DocumentType,
			&rec.SpecialRegime,
			&rec.AlertCount,
			&payload,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.DocumentKey = docKey.String

		var result model.ClassificationResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to decode result %s: %w", rec.ID, err)
		}
		rec.Result = &result

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return records, nil
}
