package model

import (
	"errors"
	"fmt"
)

// Classification and configuration errors
var (
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrUnsupportedFormat    = errors.New("unsupported source format")
	ErrReferenceNotLoaded   = errors.New("reference data not loaded")
	ErrCodeNotFound         = errors.New("code not found")
	ErrSectorNotConfigured  = errors.New("sector not configured")
	ErrExtraction           = errors.New("extraction failed")
	ErrNoOperationCode      = errors.New("no operation code in document")
)

// CodeNotFoundError is returned when a normalized code is absent from the reference table
type CodeNotFoundError struct {
	Raw        string
	Normalized string
}

func (e *CodeNotFoundError) Error() string {
	return fmt.Sprintf("CFOP %s (from %q) not found in reference data", e.Normalized, e.Raw)
}

func (e *CodeNotFoundError) Unwrap() error {
	return ErrCodeNotFound
}

// SectorNotConfiguredError is returned when a sector key has no SectorConfig
type SectorNotConfiguredError struct {
	Sector string
}

func (e *SectorNotConfiguredError) Error() string {
	return fmt.Sprintf("sector %q not configured", e.Sector)
}

func (e *SectorNotConfiguredError) Unwrap() error {
	return ErrSectorNotConfigured
}

// ExtractionError wraps a failure reported by a document extractor
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("extraction: %v", e.Err)
	}
	return fmt.Sprintf("extraction %s: %v", e.Source, e.Err)
}

// Unwrap exposes both the extraction sentinel and the underlying cause
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// ConfigError reports a configuration file that could not be used.
// Loaders return it alongside an empty value so callers can decide to continue.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("load configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfigurationMissing, e.Err}
}
