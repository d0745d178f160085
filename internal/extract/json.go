package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/fiscalia/internal/model"
)

// JSONExtractor reads documents already extracted to the cabecalho/itens
// JSON layout
type JSONExtractor struct{}

// NewJSONExtractor creates a JSON document extractor
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{}
}

// Name returns the extractor name
func (e *JSONExtractor) Name() string {
	return "document-json"
}

// Extensions returns the handled extensions
func (e *JSONExtractor) Extensions() []string {
	return []string{".json"}
}

// Extract decodes the document at path. A payload carrying an "erro" field
// is reported as an extraction failure.
func (e *JSONExtractor) Extract(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ExtractionError{Source: path, Err: err}
	}

	var payload struct {
		model.Document
		Error string `json:"erro"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &model.ExtractionError{Source: path, Err: fmt.Errorf("decode JSON: %w", err)}
	}
	if payload.Error != "" {
		return nil, &model.ExtractionError{Source: path, Err: errors.New(payload.Error)}
	}

	doc := payload.Document
	if doc.Items == nil {
		doc.Items = []model.LineItem{}
	}
	return &doc, nil
}
