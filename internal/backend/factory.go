package backend

import (
	"context"
	"fmt"

	"a3p/internal/log"
	"a3p/internal/sheets/csvfile"
	"a3p/internal/sheets/excel"
	gsheet "a3p/internal/sheets/google"
	"a3p/internal/sheets/memory"
	"a3p/internal/sheets/remote"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var res *BackendResult
	switch config.Type {
	case ExcelBackend:
		res = &BackendResult{Source: excel.New(config.Path, config.Sheet)}
	case CSVBackend:
		enc, err := csvfile.ParseEncoding(config.Encoding)
		if err != nil {
			return nil, err
		}
		res = &BackendResult{Source: csvfile.New(config.Path, config.Delimiter, enc)}
	case RemoteBackend:
		res = &BackendResult{Source: remote.New(config.URL, config.Sheet, nil)}
	case SheetsBackend:
		cli, err := f.createSheetsBackend(ctx, config)
		if err != nil {
			return nil, err
		}
		res = &BackendResult{Source: cli}
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		res = &BackendResult{Source: memory.NewFromFiles(dataDir)}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	f.logger.InfoContext(ctx, "Initialized record source",
		log.FieldBackend, config.Type.String(),
		log.FieldSource, res.Source.Name())
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*gsheet.Client, error) {
	sheet := config.GoogleSheetName
	if sheet == "" {
		sheet = gsheet.DefaultSheetName
	}
	svc, err := gsheet.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return gsheet.New(svc, config.GoogleSpreadsheetID, sheet), nil
}
