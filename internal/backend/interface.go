package backend

import (
	"context"

	"a3p/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the source and an optional cleanup function
type BackendResult struct {
	Source  sheets.TableSource
	Cleanup CleanupFunc
}

// Factory creates record sources based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for source creation
type Config struct {
	Type BackendType

	// excel and csv
	Path  string
	Sheet string

	// csv
	Delimiter rune
	Encoding  string

	// remote
	URL string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// memory
	DataDirectory string
}

// BackendType represents the type of record source
type BackendType string

const (
	ExcelBackend  BackendType = "excel"
	CSVBackend    BackendType = "csv"
	RemoteBackend BackendType = "remote"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case ExcelBackend, CSVBackend, RemoteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
