package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// DefaultFileName is the report file written when no path is configured
const DefaultFileName = "vrt-report.json"

// Marshal serializes a report and checks it against the schema
func Marshal(r *models.ComparisonReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteJSON persists a report to path, creating parent directories
func WriteJSON(path string, r *models.ComparisonReport) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadJSON loads and validates a report written by WriteJSON
func ReadJSON(path string) (*models.ComparisonReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}

	var r models.ComparisonReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
