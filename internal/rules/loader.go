// Package rules loads the sector, cost-center and industry-code
// configuration that drives classification.
//
// Loaders are fail-soft: on a missing or malformed file they return an
// empty, usable value together with a *model.ConfigError so the caller
// decides whether to continue.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fiscalia/internal/model"
)

// costCenterKey is the top-level key of the cost-center file
const costCenterKey = "centros_custo"

// SectorEntry is one sector configuration with the key it was declared under
type SectorEntry struct {
	Key    string
	Config model.SectorConfig
}

// LoadSectors reads the sector file, keeping declaration order
func LoadSectors(path string) ([]SectorEntry, error) {
	root, err := readMapping(path)
	if err != nil {
		return nil, err
	}

	var entries []SectorEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		var cfg model.SectorConfig
		if err := root.Content[i+1].Decode(&cfg); err != nil {
			return nil, &model.ConfigError{Path: path, Err: fmt.Errorf("sector %q: %w", key, err)}
		}
		entries = append(entries, SectorEntry{Key: key, Config: cfg})
	}

	return entries, nil
}

// LoadCostCenters reads the cost centers declared under "centros_custo"
func LoadCostCenters(path string) (map[string]model.CostCenterConfig, error) {
	root, err := readMapping(path)
	if err != nil {
		return map[string]model.CostCenterConfig{}, err
	}

	var doc struct {
		CostCenters map[string]model.CostCenterConfig `yaml:"centros_custo"`
	}
	if err := root.Decode(&doc); err != nil {
		return map[string]model.CostCenterConfig{}, &model.ConfigError{Path: path, Err: err}
	}
	if doc.CostCenters == nil {
		return map[string]model.CostCenterConfig{}, &model.ConfigError{
			Path: path,
			Err:  fmt.Errorf("missing %q key", costCenterKey),
		}
	}

	return doc.CostCenters, nil
}

// LoadIndustryMap reads the CNAE prefix to sector key map
func LoadIndustryMap(path string) (map[string]string, error) {
	root, err := readMapping(path)
	if err != nil {
		return map[string]string{}, err
	}

	m := make(map[string]string)
	if err := root.Decode(&m); err != nil {
		return map[string]string{}, &model.ConfigError{Path: path, Err: err}
	}

	return m, nil
}

// readMapping decodes path into a YAML node and returns its top-level mapping.
// JSON files are read through the same decoder.
func readMapping(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, &model.ConfigError{Path: path, Err: errors.New("empty file")}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &model.ConfigError{Path: path, Err: errors.New("top level is not an object")}
	}

	return doc.Content[0], nil
}

// Paths locates the three configuration files
type Paths struct {
	Sectors     string
	CostCenters string
	IndustryMap string
}

// Load reads all configuration files and builds a Set from whatever loaded.
// The returned Set is never nil; err joins every file that failed.
func Load(p Paths) (*Set, error) {
	var errs []error

	sectors, err := LoadSectors(p.Sectors)
	if err != nil {
		errs = append(errs, err)
	}
	costCenters, err := LoadCostCenters(p.CostCenters)
	if err != nil {
		errs = append(errs, err)
	}
	industry, err := LoadIndustryMap(p.IndustryMap)
	if err != nil {
		errs = append(errs, err)
	}

	return NewSet(sectors, costCenters, industry), errors.Join(errs...)
}
